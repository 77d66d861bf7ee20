package codec

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/relaysync/internal/wire"
)

// Record is the closed set of typed records the codec understands.
// Only types in this package implement it.
type Record interface {
	// WireKind returns the kind the record encodes to.
	WireKind() uint32
	record()
}

func (Profile) WireKind() uint32 { return KindProfile }
func (Post) WireKind() uint32 { return KindPost }
func (Follow) WireKind() uint32 { return KindFollow }
func (Reaction) WireKind() uint32 { return KindReaction }
func (Comment) WireKind() uint32 { return KindComment }
func (l List) WireKind() uint32 { return l.Kind }
func (s ListSet) WireKind() uint32 { return s.Kind }
func (Farm) WireKind() uint32 { return KindFarm }
func (Plot) WireKind() uint32 { return KindPlot }
func (Document) WireKind() uint32 { return KindDocument }
func (Listing) WireKind() uint32 { return KindListing }
func (r JobRequest) WireKind() uint32 { return r.Kind }
func (r JobResult) WireKind() uint32 { return r.Kind }
func (JobFeedback) WireKind() uint32 { return KindJobFeedback }
func (Message) WireKind() uint32 { return KindMessage }
func (GeoChat) WireKind() uint32 { return KindGeoChat }
func (Coop) WireKind() uint32 { return KindCoop }
func (ResourceArea) WireKind() uint32 { return KindResourceArea }
func (ResourceHarvestCap) WireKind() uint32 { return KindResourceHarvestCap }
func (AppData) WireKind() uint32 { return KindAppData }

func (Profile) record() {}
func (Post) record() {}
func (Follow) record() {}
func (Reaction) record() {}
func (Comment) record() {}
func (List) record() {}
func (ListSet) record() {}
func (Farm) record() {}
func (Plot) record() {}
func (Document) record() {}
func (Listing) record() {}
func (JobRequest) record() {}
func (JobResult) record() {}
func (JobFeedback) record() {}
func (Message) record() {}
func (GeoChat) record() {}
func (Coop) record() {}
func (ResourceArea) record() {}
func (ResourceHarvestCap) record() {}
func (AppData) record() {}

// Encode validates r and returns its canonical wire parts.
func Encode(r Record) (wire.Parts, error) {
	switch v := r.(type) {
	case Profile:
		return EncodeProfile(v)
	case Post:
		return EncodePost(v)
	case Follow:
		return EncodeFollow(v)
	case Reaction:
		return EncodeReaction(v)
	case Comment:
		return EncodeComment(v)
	case List:
		return EncodeList(v)
	case ListSet:
		return EncodeListSet(v)
	case Farm:
		return EncodeFarm(v)
	case Plot:
		return EncodePlot(v)
	case Document:
		return EncodeDocument(v)
	case Listing:
		return EncodeListing(v)
	case JobRequest:
		return EncodeJobRequest(v)
	case JobResult:
		return EncodeJobResult(v)
	case JobFeedback:
		return EncodeJobFeedback(v)
	case Message:
		return EncodeMessage(v)
	case GeoChat:
		return EncodeGeoChat(v)
	case Coop:
		return EncodeCoop(v)
	case ResourceArea:
		return EncodeResourceArea(v)
	case ResourceHarvestCap:
		return EncodeResourceHarvestCap(v)
	case AppData:
		return EncodeAppData(v)
	}
	// Unreachable: Record is sealed.
	panic(fmt.Sprintf("codec: unhandled record type %T", r))
}

// Decode selects the record type for kind and decodes it. Tags may arrive
// in any order.
func Decode(kind uint32, content string, tags wire.Tags) (Record, error) {
	switch {
	case kind == KindProfile:
		return DecodeProfile(kind, content, tags)
	case kind == KindPost:
		return DecodePost(kind, content, tags)
	case kind == KindFollow:
		return DecodeFollow(kind, content, tags)
	case kind == KindReaction:
		return DecodeReaction(kind, content, tags)
	case kind == KindComment:
		return DecodeComment(kind, content, tags)
	case IsListKind(kind):
		return DecodeList(kind, content, tags)
	case IsListSetKind(kind):
		return DecodeListSet(kind, content, tags)
	case kind == KindFarm:
		return DecodeFarm(kind, content, tags)
	case kind == KindPlot:
		return DecodePlot(kind, content, tags)
	case kind == KindDocument:
		return DecodeDocument(kind, content, tags)
	case kind == KindListing:
		return DecodeListing(kind, content, tags)
	case IsJobRequestKind(kind):
		return DecodeJobRequest(kind, content, tags)
	case IsJobResultKind(kind):
		return DecodeJobResult(kind, content, tags)
	case kind == KindJobFeedback:
		return DecodeJobFeedback(kind, content, tags)
	case kind == KindMessage:
		return DecodeMessage(kind, content, tags)
	case kind == KindGeoChat:
		return DecodeGeoChat(kind, content, tags)
	case kind == KindCoop:
		return DecodeCoop(kind, content, tags)
	case kind == KindResourceArea:
		return DecodeResourceArea(kind, content, tags)
	case kind == KindResourceHarvestCap:
		return DecodeResourceHarvestCap(kind, content, tags)
	case kind == KindAppData:
		return DecodeAppData(kind, content, tags)
	}
	return nil, &ParseError{Code: ErrCodeUnknownKind, Tag: "kind", Got: kind}
}

// DecodeParts is Decode over a Parts value.
func DecodeParts(p wire.Parts) (Record, error) {
	return Decode(p.Kind, p.Content, p.Tags)
}

// Record type names used by the JSON envelope.
const (
	TypeProfile     = "profile"
	TypePost        = "post"
	TypeFollow      = "follow"
	TypeReaction    = "reaction"
	TypeComment     = "comment"
	TypeList        = "list"
	TypeListSet     = "list_set"
	TypeFarm        = "farm"
	TypePlot        = "plot"
	TypeDocument    = "document"
	TypeListing     = "listing"
	TypeJobRequest  = "job_request"
	TypeJobResult   = "job_result"
	TypeJobFeedback = "job_feedback"

	TypeMessage            = "message"
	TypeGeoChat            = "geochat"
	TypeCoop               = "coop"
	TypeResourceArea       = "resource_area"
	TypeResourceHarvestCap = "resource_harvest_cap"
	TypeAppData            = "app_data"
)

// RecordType returns the envelope type name of r.
func RecordType(r Record) string {
	switch r.(type) {
	case Profile:
		return TypeProfile
	case Post:
		return TypePost
	case Follow:
		return TypeFollow
	case Reaction:
		return TypeReaction
	case Comment:
		return TypeComment
	case List:
		return TypeList
	case ListSet:
		return TypeListSet
	case Farm:
		return TypeFarm
	case Plot:
		return TypePlot
	case Document:
		return TypeDocument
	case Listing:
		return TypeListing
	case JobRequest:
		return TypeJobRequest
	case JobResult:
		return TypeJobResult
	case JobFeedback:
		return TypeJobFeedback
	case Message:
		return TypeMessage
	case GeoChat:
		return TypeGeoChat
	case Coop:
		return TypeCoop
	case ResourceArea:
		return TypeResourceArea
	case ResourceHarvestCap:
		return TypeResourceHarvestCap
	case AppData:
		return TypeAppData
	}
	return ""
}

// Envelope is the JSON shape used to pass typed records around outside Go,
// e.g. {"type":"reaction","record":{...}}.
type Envelope struct {
	Type   string          `json:"type"`
	Record json.RawMessage `json:"record"`
}

// UnmarshalRecord decodes an envelope into its typed record.
func UnmarshalRecord(data []byte) (Record, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	var (
		r   Record
		err error
	)
	switch env.Type {
	case TypeProfile:
		r, err = unmarshalAs[Profile](env.Record)
	case TypePost:
		r, err = unmarshalAs[Post](env.Record)
	case TypeFollow:
		r, err = unmarshalAs[Follow](env.Record)
	case TypeReaction:
		r, err = unmarshalAs[Reaction](env.Record)
	case TypeComment:
		r, err = unmarshalAs[Comment](env.Record)
	case TypeList:
		r, err = unmarshalAs[List](env.Record)
	case TypeListSet:
		r, err = unmarshalAs[ListSet](env.Record)
	case TypeFarm:
		r, err = unmarshalAs[Farm](env.Record)
	case TypePlot:
		r, err = unmarshalAs[Plot](env.Record)
	case TypeDocument:
		r, err = unmarshalAs[Document](env.Record)
	case TypeListing:
		r, err = unmarshalAs[Listing](env.Record)
	case TypeJobRequest:
		r, err = unmarshalAs[JobRequest](env.Record)
	case TypeJobResult:
		r, err = unmarshalAs[JobResult](env.Record)
	case TypeJobFeedback:
		r, err = unmarshalAs[JobFeedback](env.Record)
	case TypeMessage:
		r, err = unmarshalAs[Message](env.Record)
	case TypeGeoChat:
		r, err = unmarshalAs[GeoChat](env.Record)
	case TypeCoop:
		r, err = unmarshalAs[Coop](env.Record)
	case TypeResourceArea:
		r, err = unmarshalAs[ResourceArea](env.Record)
	case TypeResourceHarvestCap:
		r, err = unmarshalAs[ResourceHarvestCap](env.Record)
	case TypeAppData:
		r, err = unmarshalAs[AppData](env.Record)
	default:
		return nil, fmt.Errorf("unknown record type %q", env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return r, nil
}

// MarshalRecord wraps r in an Envelope.
func MarshalRecord(r Record) ([]byte, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: RecordType(r), Record: body})
}

func unmarshalAs[T Record](data json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}
