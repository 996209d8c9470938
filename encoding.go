package raft

import (
	"encoding/binary"
	"io"

	pb "github.com/arrowgrove/raftcore/internal/protobuf"
	"github.com/golang/protobuf/proto"
)

// writeFramed marshals msg and writes it to w prefixed with a 4-byte
// big-endian length, the framing used throughout the on-disk formats.
func writeFramed(w io.Writer, msg proto.Message) error {
	buf, err := proto.Marshal(msg)
	if err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(buf))); err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// readFramed reads one length-prefixed protobuf message from r into msg.
func readFramed(r io.Reader, msg proto.Message) error {
	var size uint32
	if err := binary.Read(r, binary.BigEndian, &size); err != nil {
		return err
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	return proto.Unmarshal(buf, msg)
}

func encodeSnapshot(w io.Writer, snapshot *Snapshot) error {
	configData, err := encodeConfiguration(&snapshot.Configuration)
	if err != nil {
		return err
	}
	pbSnapshot := &pb.Snapshot{
		LastIncludedIndex: snapshot.LastIncludedIndex,
		LastIncludedTerm:  snapshot.LastIncludedTerm,
		Data:              snapshot.Data,
		Configuration:     configData,
	}
	return writeFramed(w, pbSnapshot)
}

func decodeSnapshot(r io.Reader) (Snapshot, error) {
	pbSnapshot := &pb.Snapshot{}
	if err := readFramed(r, pbSnapshot); err != nil {
		return Snapshot{}, err
	}

	configuration, err := decodeConfiguration(pbSnapshot.GetConfiguration())
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		LastIncludedIndex: pbSnapshot.GetLastIncludedIndex(),
		LastIncludedTerm:  pbSnapshot.GetLastIncludedTerm(),
		Data:              pbSnapshot.GetData(),
		Configuration:     configuration,
	}, nil
}

func encodeSnapshotMetadata(w io.Writer, metadata *SnapshotMetadata) error {
	pbSnapshot := &pb.Snapshot{
		LastIncludedIndex: metadata.LastIncludedIndex,
		LastIncludedTerm:  metadata.LastIncludedTerm,
	}
	return writeFramed(w, pbSnapshot)
}

func decodeSnapshotMetadata(r io.Reader) (SnapshotMetadata, error) {
	pbSnapshot := &pb.Snapshot{}
	if err := readFramed(r, pbSnapshot); err != nil {
		return SnapshotMetadata{}, err
	}
	return SnapshotMetadata{
		LastIncludedIndex: pbSnapshot.GetLastIncludedIndex(),
		LastIncludedTerm:  pbSnapshot.GetLastIncludedTerm(),
	}, nil
}

func encodePersistentState(w io.Writer, state *persistentState) error {
	pbState := &pb.StorageState{Term: state.term, VotedFor: state.votedFor}
	return writeFramed(w, pbState)
}

func decodePersistentState(r io.Reader) (persistentState, error) {
	pbState := &pb.StorageState{}
	if err := readFramed(r, pbState); err != nil {
		return persistentState{}, err
	}
	return persistentState{term: pbState.GetTerm(), votedFor: pbState.GetVotedFor()}, nil
}
