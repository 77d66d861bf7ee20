package codec

// Wire kinds for every record type.
const (
	KindProfile            uint32 = 0
	KindPost               uint32 = 1
	KindFollow             uint32 = 3
	KindReaction           uint32 = 7
	KindMessage            uint32 = 14
	KindComment            uint32 = 1111
	KindJobFeedback        uint32 = 7000
	KindGeoChat            uint32 = 20000
	KindAppData            uint32 = 30078
	KindFarm               uint32 = 30340
	KindPlot               uint32 = 30350
	KindCoop               uint32 = 30360
	KindDocument           uint32 = 30361
	KindResourceArea       uint32 = 30370
	KindResourceHarvestCap uint32 = 30371
	KindListing            uint32 = 30402

	KindJobRequestMin uint32 = 5000
	KindJobRequestMax uint32 = 5999
	KindJobResultMin  uint32 = 6000
	KindJobResultMax  uint32 = 6999
)

// Standard replaceable list kinds.
const (
	KindMuteList      uint32 = 10000
	KindPinList       uint32 = 10001
	KindBookmarkList  uint32 = 10003
	KindCommunityList uint32 = 10004
	KindChannelList   uint32 = 10005
	KindBlockedRelays uint32 = 10006
	KindSearchRelays  uint32 = 10007
	KindGroupList     uint32 = 10009
	KindInterestList  uint32 = 10015
	KindEmojiList     uint32 = 10030
)

// Addressable list-set kinds.
const (
	KindFollowSet   uint32 = 30000
	KindRelaySet    uint32 = 30002
	KindBookmarkSet uint32 = 30003
	KindCurationSet uint32 = 30004
	KindVideoSet    uint32 = 30005
	KindMuteSet     uint32 = 30007
	KindInterestSet uint32 = 30015
	KindEmojiSet    uint32 = 30030
	KindReleaseSet  uint32 = 30063
)

// IsListKind reports whether kind is a standard replaceable list.
func IsListKind(kind uint32) bool {
	switch kind {
	case KindMuteList, KindPinList, KindBookmarkList, KindCommunityList,
		KindChannelList, KindBlockedRelays, KindSearchRelays, KindGroupList,
		KindInterestList, KindEmojiList:
		return true
	}
	return false
}

// IsListSetKind reports whether kind is an addressable list set.
func IsListSetKind(kind uint32) bool {
	switch kind {
	case KindFollowSet, KindRelaySet, KindBookmarkSet, KindCurationSet,
		KindVideoSet, KindMuteSet, KindInterestSet, KindEmojiSet, KindReleaseSet:
		return true
	}
	return false
}

// IsJobRequestKind reports whether kind is in the job request range.
func IsJobRequestKind(kind uint32) bool {
	return kind >= KindJobRequestMin && kind <= KindJobRequestMax
}

// IsJobResultKind reports whether kind is in the job result range.
func IsJobResultKind(kind uint32) bool {
	return kind >= KindJobResultMin && kind <= KindJobResultMax
}

// ListSetKinds returns every addressable list-set kind in ascending order.
func ListSetKinds() []uint32 {
	return []uint32{
		KindFollowSet, KindRelaySet, KindBookmarkSet, KindCurationSet,
		KindVideoSet, KindMuteSet, KindInterestSet, KindEmojiSet, KindReleaseSet,
	}
}
