// Package workflow define los estados del borrador, sus transiciones y el perfil
// de cada tipo de documento origen.
package workflow

import (
	"github.com/jhoicas/lotledger/internal/domain"
	"github.com/jhoicas/lotledger/internal/domain/entity"
)

// Action evento que hace avanzar el borrador.
type Action string

const (
	ActionIdentifySource Action = "IDENTIFY_SOURCE"
	ActionLinesPending   Action = "LINES_PENDING"
	ActionLinesComplete  Action = "LINES_COMPLETE"
	ActionAttachEvidence Action = "ATTACH_EVIDENCE"
	ActionIssueToken     Action = "ISSUE_TOKEN"
	ActionCommit         Action = "COMMIT"
	ActionCommitConflict Action = "COMMIT_CONFLICT"
	ActionAbort          Action = "ABORT"
	ActionDispute        Action = "DISPUTE"
)

type transitionKey struct {
	from   entity.DraftState
	action Action
}

var transitions = map[transitionKey]entity.DraftState{
	{entity.DraftIdentifySource, ActionIdentifySource}: entity.DraftReconcileLines,

	{entity.DraftReconcileLines, ActionLinesPending}:     entity.DraftReconcileLines,
	{entity.DraftReconcileLines, ActionLinesComplete}:    entity.DraftAttachEvidence,
	{entity.DraftAttachEvidence, ActionLinesPending}:     entity.DraftReconcileLines,
	{entity.DraftAttachEvidence, ActionLinesComplete}:    entity.DraftAttachEvidence,
	{entity.DraftAwaitConfirmation, ActionLinesPending}:  entity.DraftReconcileLines,
	{entity.DraftAwaitConfirmation, ActionLinesComplete}: entity.DraftAttachEvidence,

	{entity.DraftAttachEvidence, ActionAttachEvidence}:    entity.DraftAttachEvidence,
	{entity.DraftAwaitConfirmation, ActionAttachEvidence}: entity.DraftAttachEvidence,

	{entity.DraftAttachEvidence, ActionIssueToken}:    entity.DraftAwaitConfirmation,
	{entity.DraftAwaitConfirmation, ActionIssueToken}: entity.DraftAwaitConfirmation,

	{entity.DraftAwaitConfirmation, ActionCommit}:         entity.DraftCommitted,
	{entity.DraftAwaitConfirmation, ActionCommitConflict}: entity.DraftReconcileLines,

	{entity.DraftReconcileLines, ActionDispute}: entity.DraftDisputed,
}

// IsTerminal true para estados sin salida.
func IsTerminal(s entity.DraftState) bool {
	return s == entity.DraftCommitted || s == entity.DraftAborted || s == entity.DraftDisputed
}

// Next estado destino de aplicar action en from, o *domain.TransitionError.
// Abortar se permite desde cualquier estado no terminal.
func Next(from entity.DraftState, action Action) (entity.DraftState, error) {
	if action == ActionAbort && !IsTerminal(from) {
		return entity.DraftAborted, nil
	}
	if to, ok := transitions[transitionKey{from, action}]; ok {
		return to, nil
	}
	return from, &domain.TransitionError{From: string(from), Action: string(action)}
}
