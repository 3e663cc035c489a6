package accrual

import "encoding/binary"

// RecordSize is the length of a persisted account record.
const RecordSize = 32

// encodeState lays out the record as
// accrued(8) | lastClaimTime(8) | claimCount(4) | boostMultiplier(4) | dailyClaimed(8),
// all big-endian.
func encodeState(s State) []byte {
	buf := make([]byte, RecordSize)
	binary.BigEndian.PutUint64(buf[0:8], s.Accrued)
	binary.BigEndian.PutUint64(buf[8:16], s.LastClaimTime)
	binary.BigEndian.PutUint32(buf[16:20], s.ClaimCount)
	binary.BigEndian.PutUint32(buf[20:24], s.BoostMultiplier)
	binary.BigEndian.PutUint64(buf[24:32], s.DailyClaimed)
	return buf
}

func decodeState(buf []byte) (State, error) {
	if len(buf) != RecordSize {
		return State{}, ErrCorruptRecord
	}
	return State{
		Accrued:         binary.BigEndian.Uint64(buf[0:8]),
		LastClaimTime:   binary.BigEndian.Uint64(buf[8:16]),
		ClaimCount:      binary.BigEndian.Uint32(buf[16:20]),
		BoostMultiplier: binary.BigEndian.Uint32(buf[20:24]),
		DailyClaimed:    binary.BigEndian.Uint64(buf[24:32]),
	}, nil
}
