// Package policy is the pure authorization rule set. It does no I/O: callers
// load the requester and target and ask for a decision. Keeping the table in
// one place replaces the scattered per-route role annotations this grew out
// of.
package policy

import (
	"backend/internal/apperr"
	"backend/internal/model"
)

// Operation enumerates the account operations the policy rules on.
type Operation int

const (
	OpList Operation = iota
	OpReadOne
	OpUpdate
	OpDeactivate
	OpCreateOwner
	OpRestore
)

// Allow evaluates the decision table. Rules run in precedence order; the
// first match decides.
func Allow(requesterRole model.Role, requesterID, targetID uint, targetRole model.Role, op Operation) bool {
	// Rule 1: no path may deactivate an ADMIN account, not even another admin.
	if op == OpDeactivate && targetRole == model.RoleAdmin {
		return false
	}

	switch op {
	case OpCreateOwner:
		return requesterRole == model.RoleAdmin

	case OpReadOne, OpUpdate:
		if requesterRole == model.RoleCustomer {
			return requesterID == targetID
		}
		return requesterRole == model.RoleOwner || requesterRole == model.RoleAdmin

	case OpDeactivate:
		switch requesterRole {
		case model.RoleCustomer:
			return requesterID == targetID
		case model.RoleOwner:
			return targetRole == model.RoleCustomer
		case model.RoleAdmin:
			return true
		}
		return false

	case OpList:
		return requesterRole == model.RoleOwner || requesterRole == model.RoleAdmin

	case OpRestore:
		// Restoration is self-service: the restore token's subject is the
		// authorization proof, so only identity matters here.
		return requesterID == targetID
	}

	return false
}

// customerSelfFields is the only set of columns a CUSTOMER may change on
// their own account. Role, username, is_active and id are immutable from
// this path.
var customerSelfFields = map[string]bool{
	"email":    true,
	"phone":    true,
	"password": true,
	"address":  true,
	"city":     true,
	"location": true,
}

// NarrowUpdateFields filters an update column set down to what the
// requester's role may modify. A payload that narrows to nothing fails with
// ErrNoUpdatableFields.
func NarrowUpdateFields(requesterRole model.Role, fields map[string]interface{}) (map[string]interface{}, error) {
	narrowed := fields
	if requesterRole == model.RoleCustomer {
		narrowed = make(map[string]interface{}, len(fields))
		for k, v := range fields {
			if customerSelfFields[k] {
				narrowed[k] = v
			}
		}
	}
	if len(narrowed) == 0 {
		return nil, apperr.ErrNoUpdatableFields
	}
	return narrowed, nil
}
