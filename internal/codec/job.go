package codec

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/relaysync/internal/wire"
)

// Job tag keys.
const (
	TagInput     = "i"
	TagOutput    = "output"
	TagParam     = "param"
	TagBid       = "bid"
	TagRelays    = "relays"
	TagRequest   = "request"
	TagAmount    = "amount"
	TagEncrypted = "encrypted"
)

const msatPerSat = 1000

// JobInputType says how a job input's data is interpreted.
type JobInputType string

const (
	JobInputURL   JobInputType = "url"
	JobInputEvent JobInputType = "event"
	JobInputJob   JobInputType = "job"
	JobInputText  JobInputType = "text"
)

func (t JobInputType) valid() bool {
	switch t {
	case JobInputURL, JobInputEvent, JobInputJob, JobInputText:
		return true
	}
	return false
}

// JobInput is one ["i", data, type, relay?, marker?] tag.
type JobInput struct {
	Data   string       `json:"data"`
	Type   JobInputType `json:"type"`
	Relay  string       `json:"relay,omitempty"`
	Marker string       `json:"marker,omitempty"`
}

// JobParam is one ["param", key, value] tag.
type JobParam struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// JobChain points at the job request a result or feedback answers.
type JobChain struct {
	ID    string `json:"id"`
	Relay string `json:"relay,omitempty"`
}

// Payment is an amount due in whole sats, with an optional invoice.
type Payment struct {
	AmountSat uint32 `json:"amount_sat"`
	Bolt11    string `json:"bolt11,omitempty"`
}

// JobRequest asks service providers to run a job.
type JobRequest struct {
	Kind      uint32     `json:"kind"`
	Inputs    []JobInput `json:"inputs,omitempty"`
	Output    string     `json:"output,omitempty"`
	Params    []JobParam `json:"params,omitempty"`
	BidSat    *uint32    `json:"bid_sat,omitempty"`
	Relays    []string   `json:"relays,omitempty"`
	Providers []string   `json:"providers,omitempty"`
	Topics    []string   `json:"topics,omitempty"`
	Encrypted bool       `json:"encrypted,omitempty"`
	Content   string     `json:"content,omitempty"`
}

// JobResult carries the output of a job.
type JobResult struct {
	Kind        uint32     `json:"kind"`
	Request     JobChain   `json:"request"`
	RequestJSON string     `json:"request_json,omitempty"`
	Inputs      []JobInput `json:"inputs,omitempty"`
	Customer    string     `json:"customer,omitempty"`
	Payment     *Payment   `json:"payment,omitempty"`
	Encrypted   bool       `json:"encrypted,omitempty"`
	Content     string     `json:"content,omitempty"`
}

// JobFeedbackStatus is the state reported by a job feedback record.
type JobFeedbackStatus string

const (
	JobPaymentRequired JobFeedbackStatus = "payment-required"
	JobProcessing      JobFeedbackStatus = "processing"
	JobError           JobFeedbackStatus = "error"
	JobSuccess         JobFeedbackStatus = "success"
	JobPartial         JobFeedbackStatus = "partial"
)

func (s JobFeedbackStatus) valid() bool {
	switch s {
	case JobPaymentRequired, JobProcessing, JobError, JobSuccess, JobPartial:
		return true
	}
	return false
}

// JobFeedback reports progress on a job request.
type JobFeedback struct {
	Status    JobFeedbackStatus `json:"status"`
	ExtraInfo string            `json:"extra_info,omitempty"`
	Request   JobChain          `json:"request"`
	Customer  string            `json:"customer,omitempty"`
	Payment   *Payment          `json:"payment,omitempty"`
	Encrypted bool              `json:"encrypted,omitempty"`
	Content   string            `json:"content,omitempty"`
}

func inputTag(in JobInput) (wire.Tag, error) {
	if strings.TrimSpace(in.Data) == "" {
		return nil, emptyField("inputs.data")
	}
	typ := in.Type
	if typ == "" {
		typ = JobInputText
	}
	if !typ.valid() {
		return nil, invalidField("inputs.type", errors.New("unknown input type "+strconv.Quote(string(typ))))
	}
	t := wire.NewTag(TagInput, in.Data, string(typ))
	if in.Relay != "" {
		t = append(t, in.Relay)
	}
	if in.Marker != "" {
		t = append(t, in.Marker)
	}
	return t, nil
}

func appendInputs(tags wire.Tags, inputs []JobInput) (wire.Tags, error) {
	for _, in := range inputs {
		t, err := inputTag(in)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, nil
}

func parseInputs(tags wire.Tags) ([]JobInput, error) {
	var out []JobInput
	for _, t := range tags.FindAll(TagInput) {
		if len(t) < 2 || t[1] == "" {
			return nil, invalidTag(TagInput, nil)
		}
		in := JobInput{Data: t[1], Type: JobInputText}
		if len(t) >= 3 {
			typ := JobInputType(t[2])
			if !typ.valid() {
				return nil, invalidTag(TagInput, errors.New("unknown input type "+strconv.Quote(t[2])))
			}
			in.Type = typ
		}
		if v := t.At(3); v != "" {
			if looksLikeRelay(v) {
				in.Relay = v
				in.Marker = t.At(4)
			} else {
				in.Marker = v
			}
		}
		out = append(out, in)
	}
	return out, nil
}

func msatTag(key string, sat uint32, extra ...string) wire.Tag {
	msat := uint64(sat) * msatPerSat
	return wire.NewTag(key, append([]string{strconv.FormatUint(msat, 10)}, extra...)...)
}

// ParseMsat converts a millisatoshi string into whole sats, naming tag in
// any error.
func ParseMsat(tag, value string) (uint32, error) {
	msat, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, invalidNumber(tag, err)
	}
	if msat%msatPerSat != 0 {
		return 0, &ParseError{Code: ErrCodeNonWholeUnit, Tag: tag}
	}
	sat := msat / msatPerSat
	if sat > math.MaxUint32 {
		return 0, &ParseError{Code: ErrCodeAmountOverflow, Tag: tag}
	}
	return uint32(sat), nil
}

func parsePayment(tags wire.Tags) (*Payment, error) {
	t, ok := tags.Find(TagAmount)
	if !ok {
		return nil, nil
	}
	if len(t) < 2 {
		return nil, invalidTag(TagAmount, nil)
	}
	sat, err := ParseMsat(TagAmount, t[1])
	if err != nil {
		return nil, err
	}
	return &Payment{AmountSat: sat, Bolt11: t.At(2)}, nil
}

func paymentTag(p *Payment) wire.Tag {
	if p.Bolt11 != "" {
		return msatTag(TagAmount, p.AmountSat, p.Bolt11)
	}
	return msatTag(TagAmount, p.AmountSat)
}

func chainTag(c JobChain) (wire.Tag, error) {
	if strings.TrimSpace(c.ID) == "" {
		return nil, emptyField("request.id")
	}
	if c.Relay != "" {
		return wire.NewTag(TagE, c.ID, c.Relay), nil
	}
	return wire.NewTag(TagE, c.ID), nil
}

func parseChain(tags wire.Tags) (JobChain, error) {
	t, ok := tags.Find(TagE)
	if !ok {
		return JobChain{}, &ParseError{Code: ErrCodeMissingChainTag, Tag: TagE}
	}
	if len(t) < 2 || t[1] == "" {
		return JobChain{}, invalidTag(TagE, nil)
	}
	return JobChain{ID: t[1], Relay: t.At(2)}, nil
}

// EncodeJobRequest encodes a job request. Encrypted requests must name at
// least one provider to encrypt to.
func EncodeJobRequest(r JobRequest) (wire.Parts, error) {
	if !IsJobRequestKind(r.Kind) {
		return wire.Parts{}, encodeInvalidKind(r.Kind)
	}
	if r.Encrypted && len(r.Providers) == 0 {
		return wire.Parts{}, emptyField("providers")
	}
	tags, err := appendInputs(nil, r.Inputs)
	if err != nil {
		return wire.Parts{}, err
	}
	tags = optionalTag(tags, TagOutput, r.Output)
	for _, p := range r.Params {
		if strings.TrimSpace(p.Key) == "" {
			return wire.Parts{}, emptyField("params.key")
		}
		tags = append(tags, wire.NewTag(TagParam, p.Key, p.Value))
	}
	if r.BidSat != nil {
		tags = append(tags, msatTag(TagBid, *r.BidSat))
	}
	tags = appendValues(tags, TagRelays, r.Relays)
	tags = appendValues(tags, TagP, r.Providers)
	tags = appendValues(tags, TagT, r.Topics)
	if r.Encrypted {
		tags = append(tags, wire.NewTag(TagEncrypted))
	}
	return finish(r.Kind, r.Content, tags), nil
}

// DecodeJobRequest decodes a job request.
func DecodeJobRequest(kind uint32, content string, tags wire.Tags) (JobRequest, error) {
	if !IsJobRequestKind(kind) {
		return JobRequest{}, invalidKind("5000-5999", kind)
	}
	tags = wire.Canonicalize(tags)
	inputs, err := parseInputs(tags)
	if err != nil {
		return JobRequest{}, err
	}
	r := JobRequest{
		Kind:      kind,
		Inputs:    inputs,
		Relays:    collectValues(tags, TagRelays),
		Providers: collectValues(tags, TagP),
		Topics:    collectValues(tags, TagT),
		Encrypted: tags.Has(TagEncrypted),
		Content:   content,
	}
	r.Output, _ = tags.Value(TagOutput)
	for _, t := range tags.FindAll(TagParam) {
		if len(t) < 3 {
			return JobRequest{}, invalidTag(TagParam, nil)
		}
		r.Params = append(r.Params, JobParam{Key: t[1], Value: t[2]})
	}
	if t, ok := tags.Find(TagBid); ok {
		if len(t) < 2 {
			return JobRequest{}, invalidTag(TagBid, nil)
		}
		bid, err := ParseMsat(TagBid, t[1])
		if err != nil {
			return JobRequest{}, err
		}
		r.BidSat = &bid
	}
	if r.Encrypted && len(r.Providers) == 0 {
		return JobRequest{}, missingTag(TagP)
	}
	return r, nil
}

// EncodeJobResult encodes a job result. Encrypted results carry their
// inputs inside the encrypted content, so plaintext inputs are rejected.
func EncodeJobResult(r JobResult) (wire.Parts, error) {
	if !IsJobResultKind(r.Kind) {
		return wire.Parts{}, encodeInvalidKind(r.Kind)
	}
	if r.Encrypted && len(r.Inputs) > 0 {
		return wire.Parts{}, invalidField("inputs", errors.New("must be empty when encrypted"))
	}
	chain, err := chainTag(r.Request)
	if err != nil {
		return wire.Parts{}, err
	}
	tags := wire.Tags{chain}
	tags = optionalTag(tags, TagRequest, r.RequestJSON)
	if tags, err = appendInputs(tags, r.Inputs); err != nil {
		return wire.Parts{}, err
	}
	tags = optionalTag(tags, TagP, r.Customer)
	if r.Payment != nil {
		tags = append(tags, paymentTag(r.Payment))
	}
	if r.Encrypted {
		tags = append(tags, wire.NewTag(TagEncrypted))
	}
	return finish(r.Kind, r.Content, tags), nil
}

// DecodeJobResult decodes a job result.
func DecodeJobResult(kind uint32, content string, tags wire.Tags) (JobResult, error) {
	if !IsJobResultKind(kind) {
		return JobResult{}, invalidKind("6000-6999", kind)
	}
	tags = wire.Canonicalize(tags)
	chain, err := parseChain(tags)
	if err != nil {
		return JobResult{}, err
	}
	inputs, err := parseInputs(tags)
	if err != nil {
		return JobResult{}, err
	}
	payment, err := parsePayment(tags)
	if err != nil {
		return JobResult{}, err
	}
	r := JobResult{
		Kind:      kind,
		Request:   chain,
		Inputs:    inputs,
		Payment:   payment,
		Encrypted: tags.Has(TagEncrypted),
		Content:   content,
	}
	r.RequestJSON, _ = tags.Value(TagRequest)
	r.Customer, _ = tags.Value(TagP)
	if r.Encrypted && len(r.Inputs) > 0 {
		return JobResult{}, invalidTag(TagInput, errors.New("plaintext inputs on encrypted result"))
	}
	return r, nil
}

// EncodeJobFeedback encodes job feedback.
func EncodeJobFeedback(f JobFeedback) (wire.Parts, error) {
	if f.Status == "" {
		return wire.Parts{}, emptyField("status")
	}
	if !f.Status.valid() {
		return wire.Parts{}, invalidField("status", errors.New("unknown status "+strconv.Quote(string(f.Status))))
	}
	chain, err := chainTag(f.Request)
	if err != nil {
		return wire.Parts{}, err
	}
	status := wire.NewTag(TagStatus, string(f.Status))
	if f.ExtraInfo != "" {
		status = append(status, f.ExtraInfo)
	}
	tags := wire.Tags{chain, status}
	tags = optionalTag(tags, TagP, f.Customer)
	if f.Payment != nil {
		tags = append(tags, paymentTag(f.Payment))
	}
	if f.Encrypted {
		tags = append(tags, wire.NewTag(TagEncrypted))
	}
	return finish(KindJobFeedback, f.Content, tags), nil
}

// DecodeJobFeedback decodes job feedback.
func DecodeJobFeedback(kind uint32, content string, tags wire.Tags) (JobFeedback, error) {
	if kind != KindJobFeedback {
		return JobFeedback{}, invalidKind("7000", kind)
	}
	tags = wire.Canonicalize(tags)
	chain, err := parseChain(tags)
	if err != nil {
		return JobFeedback{}, err
	}
	st, ok := tags.Find(TagStatus)
	if !ok {
		return JobFeedback{}, missingTag(TagStatus)
	}
	status := JobFeedbackStatus(st.At(1))
	if !status.valid() {
		return JobFeedback{}, invalidTag(TagStatus, nil)
	}
	payment, err := parsePayment(tags)
	if err != nil {
		return JobFeedback{}, err
	}
	f := JobFeedback{
		Status:    status,
		ExtraInfo: st.At(2),
		Request:   chain,
		Payment:   payment,
		Encrypted: tags.Has(TagEncrypted),
		Content:   content,
	}
	f.Customer, _ = tags.Value(TagP)
	return f, nil
}
