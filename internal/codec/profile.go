package codec

import (
	"fmt"
	"strings"

	"github.com/roach88/relaysync/internal/wire"
)

// ProfileType classifies the account behind a profile. It travels as a
// "t" tag so relays can filter on it.
type ProfileType string

const (
	ProfileIndividual ProfileType = "individual"
	ProfileFarm       ProfileType = "farm"
	ProfileCoop       ProfileType = "coop"
	ProfileAny        ProfileType = "any"
	ProfileDaemon     ProfileType = "radrootsd"
)

const profileTypePrefix = "radroots:type:"

func (t ProfileType) valid() bool {
	switch t {
	case ProfileIndividual, ProfileFarm, ProfileCoop, ProfileAny, ProfileDaemon:
		return true
	}
	return false
}

// Profile is the replaceable account metadata record.
type Profile struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"display_name,omitempty"`
	About       string      `json:"about,omitempty"`
	Website     string      `json:"website,omitempty"`
	Picture     string      `json:"picture,omitempty"`
	Banner      string      `json:"banner,omitempty"`
	NIP05       string      `json:"nip05,omitempty"`
	LUD06       string      `json:"lud06,omitempty"`
	LUD16       string      `json:"lud16,omitempty"`
	Type        ProfileType `json:"profile_type,omitempty"`
}

// profileContent is the JSON carried in the event content. The profile
// type is deliberately absent: it lives in a tag.
type profileContent struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	About       string `json:"about,omitempty"`
	Website     string `json:"website,omitempty"`
	Picture     string `json:"picture,omitempty"`
	Banner      string `json:"banner,omitempty"`
	NIP05       string `json:"nip05,omitempty"`
	LUD06       string `json:"lud06,omitempty"`
	LUD16       string `json:"lud16,omitempty"`
}

func (p Profile) validate() error {
	if err := requireText(p.Name, "name"); err != nil {
		return err
	}
	for _, f := range []struct{ name, value string }{
		{"website", p.Website},
		{"picture", p.Picture},
		{"banner", p.Banner},
	} {
		if err := validateURL(f.value, f.name); err != nil {
			return err
		}
	}
	if p.Type != "" && !p.Type.valid() {
		return invalidField("profile_type", fmt.Errorf("unknown profile type %q", p.Type))
	}
	return nil
}

// EncodeProfile encodes profile metadata as canonical JSON content.
func EncodeProfile(p Profile) (wire.Parts, error) {
	if err := p.validate(); err != nil {
		return wire.Parts{}, err
	}
	content, err := marshalContent(profileContent{
		Name:        p.Name,
		DisplayName: p.DisplayName,
		About:       p.About,
		Website:     p.Website,
		Picture:     p.Picture,
		Banner:      p.Banner,
		NIP05:       p.NIP05,
		LUD06:       p.LUD06,
		LUD16:       p.LUD16,
	})
	if err != nil {
		return wire.Parts{}, err
	}
	var tags wire.Tags
	if p.Type != "" {
		tags = append(tags, wire.NewTag(TagT, profileTypePrefix+string(p.Type)))
	}
	return finish(KindProfile, content, tags), nil
}

// DecodeProfile decodes profile metadata.
func DecodeProfile(kind uint32, content string, tags wire.Tags) (Profile, error) {
	if kind != KindProfile {
		return Profile{}, invalidKind("0", kind)
	}
	tags = wire.Canonicalize(tags)
	var c profileContent
	if err := unmarshalContent(content, &c); err != nil {
		return Profile{}, err
	}
	p := Profile{
		Name:        c.Name,
		DisplayName: c.DisplayName,
		About:       c.About,
		Website:     c.Website,
		Picture:     c.Picture,
		Banner:      c.Banner,
		NIP05:       c.NIP05,
		LUD06:       c.LUD06,
		LUD16:       c.LUD16,
	}
	for _, v := range collectValues(tags, TagT) {
		suffix, ok := strings.CutPrefix(v, profileTypePrefix)
		if !ok {
			continue
		}
		pt := ProfileType(suffix)
		if !pt.valid() {
			return Profile{}, invalidTag(TagT, fmt.Errorf("unknown profile type %q", suffix))
		}
		p.Type = pt
		break
	}
	if err := p.validate(); err != nil {
		return Profile{}, &ParseError{Code: ErrCodeInvalidJSON, Tag: "content", Err: err}
	}
	return p, nil
}
