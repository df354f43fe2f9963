package types

// ChannelKind represents the kind of Slack conversation
type ChannelKind string

const (
	ChannelKindPublic      ChannelKind = "public"
	ChannelKindPrivate     ChannelKind = "private"
	ChannelKindDirect      ChannelKind = "direct"
	ChannelKindGroupDirect ChannelKind = "group_direct"
)

// String returns the string representation of ChannelKind
func (x ChannelKind) String() string {
	return string(x)
}
