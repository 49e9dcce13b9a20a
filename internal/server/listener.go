package server

import (
	"github.com/rs/zerolog"

	"github.com/Olexandr88/indexreg/internal/observability"
	"github.com/Olexandr88/indexreg/internal/registry"
)

// updateListener forwards registry notifications into logs and gauges.
type updateListener struct {
	logger zerolog.Logger
}

func (l *updateListener) OperatorIndexUpdated(op registry.OperatorID, quorum registry.QuorumNumber, index uint32, block registry.BlockNumber) {
	l.logger.Info().
		Str("operator", op.String()).
		Uint8("quorum", uint8(quorum)).
		Uint32("index", index).
		Uint64("block", uint64(block)).
		Msg("operator_index_updated")
}

func (l *updateListener) QuorumSizeUpdated(quorum registry.QuorumNumber, size uint32, block registry.BlockNumber) {
	observability.SetQuorumSize(uint8(quorum), size)
	l.logger.Info().
		Uint8("quorum", uint8(quorum)).
		Uint32("size", size).
		Uint64("block", uint64(block)).
		Msg("quorum_size_updated")
}

func (l *updateListener) GlobalSlotRelocated(op registry.OperatorID, slot uint32) {
	l.logger.Info().
		Str("operator", op.String()).
		Uint32("slot", slot).
		Msg("global_slot_relocated")
}
