package service

import (
	"fmt"

	"github.com/AnTengye/bettertender/backend/model"
)

// Operation is a tender lifecycle operation
type Operation string

const (
	OpUpdate  Operation = "update"
	OpPublish Operation = "publish"
	OpClose   Operation = "close"
	OpAward   Operation = "award"
	OpCancel  Operation = "cancel"
	OpDelete  Operation = "delete"
)

// statusRemoved is the pseudo-state reached by OpDelete
const statusRemoved model.TenderStatus = ""

// transitions maps state × operation to the next state. A missing entry is a rejection.
var transitions = map[model.TenderStatus]map[Operation]model.TenderStatus{
	model.TenderDraft: {
		OpUpdate:  model.TenderDraft,
		OpPublish: model.TenderPublished,
		OpCancel:  model.TenderCancelled,
		OpDelete:  statusRemoved,
	},
	model.TenderPublished: {
		OpUpdate: model.TenderPublished,
		OpClose:  model.TenderClosed,
		OpAward:  model.TenderAwarded,
		OpCancel: model.TenderCancelled,
		OpDelete: statusRemoved,
	},
	model.TenderClosed: {
		OpAward:  model.TenderAwarded,
		OpCancel: model.TenderCancelled,
		OpDelete: statusRemoved,
	},
	model.TenderAwarded:   {},
	model.TenderCancelled: {},
}

// operationActions is the guard action checked for each operation
var operationActions = map[Operation]Action{
	OpUpdate:  ActTenderUpdate,
	OpPublish: ActTenderPublish,
	OpClose:   ActTenderClose,
	OpAward:   ActTenderAward,
	OpCancel:  ActTenderCancel,
	OpDelete:  ActTenderDelete,
}

// nextStatus returns the state reached by applying op in from
func nextStatus(from model.TenderStatus, op Operation) (model.TenderStatus, error) {
	to, ok := transitions[from][op]
	if !ok {
		return from, fmt.Errorf("%w: cannot %s a %s tender", ErrInvalidTransition, op, from)
	}
	return to, nil
}
