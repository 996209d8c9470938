package raft

import (
	"fmt"

	pb "github.com/arrowgrove/raftcore/internal/protobuf"
	"github.com/golang/protobuf/proto"
)

// ConfigurationKind distinguishes a stable, single member set from a joint
// configuration that is mid-transition between an old and a new member set.
type ConfigurationKind uint32

const (
	// ConfigurationStable describes a cluster with exactly one active member set.
	ConfigurationStable ConfigurationKind = iota

	// ConfigurationJoint describes a cluster mid-membership-change: both the
	// old and the new member sets must separately reach quorum before an
	// entry can be considered committed.
	ConfigurationJoint
)

func (k ConfigurationKind) String() string {
	switch k {
	case ConfigurationStable:
		return "stable"
	case ConfigurationJoint:
		return "joint"
	default:
		panic("invalid configuration kind")
	}
}

// MemberSet is a set of cluster members, mapping member ID to network
// address, along with which members are voters.
type MemberSet struct {
	// Members maps member ID to network address.
	Members map[string]string

	// IsVoter maps member ID to whether that member's vote and match index
	// count toward quorum. Non-voting members receive log entries but do
	// not participate in elections or commitment.
	IsVoter map[string]bool
}

func newMemberSet(members map[string]string) MemberSet {
	isVoter := make(map[string]bool, len(members))
	for id := range members {
		isVoter[id] = true
	}
	return MemberSet{Members: members, IsVoter: isVoter}
}

func (s MemberSet) voters() []string {
	voters := make([]string, 0, len(s.Members))
	for id := range s.Members {
		if s.IsVoter[id] {
			voters = append(voters, id)
		}
	}
	return voters
}

// hasQuorum reports whether votes contains a majority of this set's voters.
func (s MemberSet) hasQuorum(votes map[string]bool) bool {
	voters := s.voters()
	if len(voters) == 0 {
		return true
	}
	count := 0
	for _, id := range voters {
		if votes[id] {
			count++
		}
	}
	return count > len(voters)/2
}

// Configuration represents a cluster's membership as a tagged variant: it is
// either Stable, with one member set, or Joint, mid a membership change,
// with an old and a new member set that must both separately reach quorum.
// This mirrors how raft treats C_old,new during a configuration change: an
// entry is only committed once it has a majority in the old configuration
// AND a majority in the new one.
type Configuration struct {
	// Kind discriminates Stable from Joint.
	Kind ConfigurationKind

	// Current is populated when Kind is ConfigurationStable.
	Current MemberSet

	// Old and New are populated when Kind is ConfigurationJoint.
	Old MemberSet
	New MemberSet

	// Index is the log index of the entry that introduced this configuration.
	Index uint64
}

// NewConfiguration creates a stable configuration with the provided members.
// By default, all members in the returned configuration are voters.
func NewConfiguration(members map[string]string) *Configuration {
	return &Configuration{Kind: ConfigurationStable, Current: newMemberSet(members)}
}

// NewJointConfiguration creates a joint configuration transitioning from the
// old member set to the new one.
func NewJointConfiguration(old, new MemberSet) *Configuration {
	return &Configuration{Kind: ConfigurationJoint, Old: old, New: new}
}

// IsJoint reports whether the configuration is mid membership-change.
func (c *Configuration) IsJoint() bool {
	return c.Kind == ConfigurationJoint
}

// MemberIDs returns the IDs of every member reachable under this
// configuration, deduplicated across old and new sets when joint.
func (c *Configuration) MemberIDs() []string {
	seen := make(map[string]bool)
	ids := make([]string, 0)
	add := func(set MemberSet) {
		for id := range set.Members {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	if c.Kind == ConfigurationStable {
		add(c.Current)
	} else {
		add(c.Old)
		add(c.New)
	}
	return ids
}

// Address returns the network address of the given member ID, if known.
func (c *Configuration) Address(id string) (string, bool) {
	if c.Kind == ConfigurationStable {
		addr, ok := c.Current.Members[id]
		return addr, ok
	}
	if addr, ok := c.New.Members[id]; ok {
		return addr, true
	}
	addr, ok := c.Old.Members[id]
	return addr, ok
}

// HasQuorum reports whether votes constitutes a majority under this
// configuration. For a joint configuration, votes must carry a majority of
// BOTH the old and the new member sets.
func (c *Configuration) HasQuorum(votes map[string]bool) bool {
	switch c.Kind {
	case ConfigurationStable:
		return c.Current.hasQuorum(votes)
	case ConfigurationJoint:
		return c.Old.hasQuorum(votes) && c.New.hasQuorum(votes)
	default:
		panic("invalid configuration kind")
	}
}

// ToNewStable produces the stable configuration that a joint configuration
// transitions to once C_new alone has been committed.
func (c *Configuration) ToNewStable(index uint64) *Configuration {
	return &Configuration{Kind: ConfigurationStable, Current: c.New, Index: index}
}

func encodeConfiguration(configuration *Configuration) ([]byte, error) {
	pbConfiguration := &pb.Configuration{Index: configuration.Index}
	switch configuration.Kind {
	case ConfigurationStable:
		pbConfiguration.Kind = pb.Configuration_STABLE
		pbConfiguration.Members = configuration.Current.Members
		pbConfiguration.IsVoter = configuration.Current.IsVoter
	case ConfigurationJoint:
		pbConfiguration.Kind = pb.Configuration_JOINT
		pbConfiguration.OldMembers = configuration.Old.Members
		pbConfiguration.OldIsVoter = configuration.Old.IsVoter
		pbConfiguration.NewMembers = configuration.New.Members
		pbConfiguration.NewIsVoter = configuration.New.IsVoter
	}

	data, err := proto.Marshal(pbConfiguration)
	if err != nil {
		return nil, fmt.Errorf("could not marshal protobuf message: %w", err)
	}
	return data, nil
}

func decodeConfiguration(data []byte) (Configuration, error) {
	pbConfiguration := &pb.Configuration{}
	if err := proto.Unmarshal(data, pbConfiguration); err != nil {
		return Configuration{}, fmt.Errorf("could not unmarshal protobuf message: %w", err)
	}

	configuration := Configuration{Index: pbConfiguration.GetIndex()}
	switch pbConfiguration.GetKind() {
	case pb.Configuration_STABLE:
		configuration.Kind = ConfigurationStable
		configuration.Current = MemberSet{
			Members: pbConfiguration.GetMembers(),
			IsVoter: pbConfiguration.GetIsVoter(),
		}
	case pb.Configuration_JOINT:
		configuration.Kind = ConfigurationJoint
		configuration.Old = MemberSet{
			Members: pbConfiguration.GetOldMembers(),
			IsVoter: pbConfiguration.GetOldIsVoter(),
		}
		configuration.New = MemberSet{
			Members: pbConfiguration.GetNewMembers(),
			IsVoter: pbConfiguration.GetNewIsVoter(),
		}
	}
	return configuration, nil
}
