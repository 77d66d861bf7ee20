package codec

import (
	"fmt"
	"strings"

	"github.com/roach88/relaysync/internal/dtag"
)

// Scopes of membership list-set ids, "<scope>:<d-tag>:<suffix>".
const (
	ScopeFarm     = "farm"
	ScopeCoop     = "coop"
	ScopeResource = "resource"
)

// Fixed ids of the sets a pubkey uses to claim its own memberships.
const (
	MemberOfFarms = "member_of.farms"
	MemberOfCoops = "member_of.coops"
)

// PlotRef names a plot by owner and d-tag.
type PlotRef struct {
	Pubkey string `json:"pubkey"`
	DTag   string `json:"d_tag"`
}

// Address returns the "a" tag value "30350:<pubkey>:<d-tag>".
func (r PlotRef) Address() string {
	return fmt.Sprintf("%d:%s:%s", KindPlot, r.Pubkey, r.DTag)
}

// ListSetID builds the id of a scoped membership set, e.g.
// "coop:<d-tag>:members".
func ListSetID(scope, id, suffix string) (string, error) {
	id = strings.TrimSpace(id)
	if err := requireDTag(id, scope+"_id"); err != nil {
		return "", err
	}
	if strings.TrimSpace(suffix) == "" {
		return "", emptyField("list_set_suffix")
	}
	return scope + ":" + id + ":" + suffix, nil
}

// validateListSetID accepts a plain d-tag, a fixed member_of id, or a
// scoped id whose middle part is a valid d-tag.
func validateListSetID(value string) error {
	if value == MemberOfFarms || value == MemberOfCoops {
		return nil
	}
	scope, rest, ok := strings.Cut(value, ":")
	if !ok {
		return dtag.Validate(value)
	}
	switch scope {
	case ScopeFarm, ScopeCoop, ScopeResource:
	default:
		return fmt.Errorf("unknown list set scope %q", scope)
	}
	id, suffix, ok := strings.Cut(rest, ":")
	if !ok || strings.TrimSpace(suffix) == "" {
		return fmt.Errorf("list set id %q has no suffix", value)
	}
	return dtag.Validate(id)
}

func pubkeyEntries(values []string) ([]ListEntry, error) {
	return valueEntries(TagP, values)
}

func valueEntries(tag string, values []string) ([]ListEntry, error) {
	entries := make([]ListEntry, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, emptyField("entry.values")
		}
		entries = append(entries, ListEntry{Tag: tag, Values: []string{v}})
	}
	return entries, nil
}

type memberRef struct {
	pubkey, dtag, addr string
}

// addressEntries lists each address with its owner, as ["a", addr] and
// ["p", pubkey] pairs.
func addressEntries(field string, refs []memberRef) ([]ListEntry, error) {
	entries := make([]ListEntry, 0, 2*len(refs))
	for _, r := range refs {
		if strings.TrimSpace(r.pubkey) == "" {
			return nil, emptyField(field + ".pubkey")
		}
		if err := requireDTag(r.dtag, field+".d_tag"); err != nil {
			return nil, err
		}
		entries = append(entries,
			ListEntry{Tag: TagA, Values: []string{r.addr}},
			ListEntry{Tag: TagP, Values: []string{r.pubkey}},
		)
	}
	return entries, nil
}

func farmEntries(farms []FarmRef) ([]ListEntry, error) {
	refs := make([]memberRef, len(farms))
	for i, f := range farms {
		refs[i] = memberRef{f.Pubkey, f.DTag, f.Address()}
	}
	return addressEntries("farm", refs)
}

func plotEntries(plots []PlotRef) ([]ListEntry, error) {
	refs := make([]memberRef, len(plots))
	for i, p := range plots {
		refs[i] = memberRef{p.Pubkey, p.DTag, p.Address()}
	}
	return addressEntries("plot", refs)
}

func membershipSet(scope, id, suffix string, entries []ListEntry, err error) (ListSet, error) {
	if err != nil {
		return ListSet{}, err
	}
	d, err := ListSetID(scope, id, suffix)
	if err != nil {
		return ListSet{}, err
	}
	return ListSet{Kind: KindFollowSet, DTag: d, Entries: entries}, nil
}

// CoopMembersListSet lists the member pubkeys of a coop.
func CoopMembersListSet(coopID string, members []string) (ListSet, error) {
	entries, err := pubkeyEntries(members)
	return membershipSet(ScopeCoop, coopID, "members", entries, err)
}

// CoopMemberFarmsListSet lists the farms belonging to a coop.
func CoopMemberFarmsListSet(coopID string, farms []FarmRef) (ListSet, error) {
	entries, err := farmEntries(farms)
	return membershipSet(ScopeCoop, coopID, "members.farms", entries, err)
}

// CoopOwnersListSet lists the owners of a coop.
func CoopOwnersListSet(coopID string, owners []string) (ListSet, error) {
	entries, err := pubkeyEntries(owners)
	return membershipSet(ScopeCoop, coopID, "members.owners", entries, err)
}

// CoopAdminsListSet lists the admins of a coop.
func CoopAdminsListSet(coopID string, admins []string) (ListSet, error) {
	entries, err := pubkeyEntries(admins)
	return membershipSet(ScopeCoop, coopID, "members.admins", entries, err)
}

// CoopItemsListSet lists the addresses of records a coop offers.
func CoopItemsListSet(coopID string, addresses []string) (ListSet, error) {
	entries, err := valueEntries(TagA, addresses)
	return membershipSet(ScopeCoop, coopID, "items", entries, err)
}

// MemberOfCoopsListSet is a pubkey's own claim of the coops it belongs to.
func MemberOfCoopsListSet(coopPubkeys []string) (ListSet, error) {
	entries, err := pubkeyEntries(coopPubkeys)
	if err != nil {
		return ListSet{}, err
	}
	return ListSet{Kind: KindFollowSet, DTag: MemberOfCoops, Entries: entries}, nil
}

// ResourceAreaMemberFarmsListSet lists the farms sharing a resource area.
func ResourceAreaMemberFarmsListSet(areaID string, farms []FarmRef) (ListSet, error) {
	entries, err := farmEntries(farms)
	return membershipSet(ScopeResource, areaID, "members.farms", entries, err)
}

// ResourceAreaMemberPlotsListSet lists the plots inside a resource area.
func ResourceAreaMemberPlotsListSet(areaID string, plots []PlotRef) (ListSet, error) {
	entries, err := plotEntries(plots)
	return membershipSet(ScopeResource, areaID, "members.plots", entries, err)
}

// ResourceAreaStewardsListSet lists the stewards of a resource area.
func ResourceAreaStewardsListSet(areaID string, stewards []string) (ListSet, error) {
	entries, err := pubkeyEntries(stewards)
	return membershipSet(ScopeResource, areaID, "members.stewards", entries, err)
}
