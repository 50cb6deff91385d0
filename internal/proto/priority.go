package proto

import "sort"

// classOf returns the §4.2 replay-priority class for m's tag. Any tag
// outside the table is a programming error — it is fatal, not a decode
// error, since it can only happen if a new variant was added to the sum
// type without updating this table.
func classOf(tag Tag) int {
	switch tag {
	case TagKeepAlive, TagBuildRequest:
		return 0
	case TagBuildStarted:
		return 1
	case TagPrompt, TagPromptResponse, TagDisplay, TagPrintOut, TagPrintErr, TagRequestInput, TagInputData:
		return 2
	case TagProjectStarted:
		return 3
	case TagMojoStarted:
		return 4
	case TagExecutionFailure:
		return 10
	case TagTransferInitiated, TagTransferStarted:
		return 40
	case TagTransferProgress:
		return 41
	case TagTransferCorrupted, TagTransferSucceeded, TagTransferFailed:
		return 42
	case TagProjectLogMessage:
		return 50
	case TagBuildLogMessage:
		return 51
	case TagProjectStopped:
		return 95
	case TagBuildFinished:
		return 96
	case TagBuildException:
		return 97
	case TagStop:
		return 99
	default:
		panic("proto: message with unknown tag " + tag.String() + " has no priority class")
	}
}

// SortByPriority stably reorders a batch of already-received messages into
// canonical replay order: first by class (§4.2 table), ties broken by
// construction sequence number. This is used only when a batch of messages
// must be replayed to a downstream consumer in canonical order — never for
// in-flight reordering on the wire (spec §5).
func SortByPriority(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		ci, cj := classOf(msgs[i].Tag()), classOf(msgs[j].Tag())
		if ci != cj {
			return ci < cj
		}
		return Seq(msgs[i]) < Seq(msgs[j])
	})
}
