package quest

import (
	"github.com/kasuganosora/hearthquest/errs"
	"github.com/kasuganosora/hearthquest/model"
)

// Actor is the verified caller of a lifecycle operation.
type Actor struct {
	UserID   int64      `json:"user_id"`
	FamilyID int64      `json:"family_id"`
	Role     model.Role `json:"role"`
}

// System is the actor used by scheduled sweeps.
var System = Actor{Role: model.RoleGuardian}

// Guardian reports whether the actor holds the guardian role.
func (a Actor) Guardian() bool { return a.Role == model.RoleGuardian }

type guard func(a Actor, q *model.Quest) error

func memberOf(action string) guard {
	return func(a Actor, q *model.Quest) error {
		if a.FamilyID != q.FamilyID {
			return errs.Unauthorized(action, a.UserID)
		}
		return nil
	}
}

func assigneeOf(action string) guard {
	return func(a Actor, q *model.Quest) error {
		if a.FamilyID != q.FamilyID || q.AssigneeID == nil || *q.AssigneeID != a.UserID {
			return errs.Unauthorized(action, a.UserID)
		}
		return nil
	}
}

func guardianOf(action string) guard {
	return func(a Actor, q *model.Quest) error {
		if a.FamilyID != q.FamilyID || !a.Guardian() {
			return errs.Unauthorized(action, a.UserID)
		}
		return nil
	}
}
