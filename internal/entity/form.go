package entity

import (
	"context"
	"fmt"
	"strconv"

	"github.com/patidost/pati_admin_v1/internal/api"
	"github.com/patidost/pati_admin_v1/internal/apierrors"
	"github.com/patidost/pati_admin_v1/internal/harddelete"
)

// BeginCreate opens the create form with every schema field blank.
func (c *Controller) BeginCreate() {
	c.mu.Lock()
	c.form = map[string]string{}
	for _, f := range c.schema.Fields {
		c.form[f.Name] = ""
	}
	c.editing = nil
	c.modalState = ModalCreating
	c.mu.Unlock()
	c.emit()
}

// BeginEdit opens the edit form populated from rec. The organizationCode
// field is read from the nested organization.code when the record carries
// the relation expanded.
func (c *Controller) BeginEdit(rec api.Record) {
	c.mu.Lock()
	c.form = map[string]string{}
	for _, f := range c.schema.Fields {
		c.form[f.Name] = formValue(rec, f.Name)
	}
	c.editing = rec
	c.modalState = ModalEditing
	c.mu.Unlock()
	c.emit()
}

// CloseModal abandons the open form.
func (c *Controller) CloseModal() {
	c.mu.Lock()
	c.form = nil
	c.editing = nil
	c.modalState = ModalClosed
	c.mu.Unlock()
	c.emit()
}

// SetField updates one form value.
func (c *Controller) SetField(name, value string) {
	c.mu.Lock()
	if c.form != nil {
		c.form[name] = value
	}
	c.mu.Unlock()
	c.emit()
}

// Submit validates the form and dispatches the create or update. Empty
// values are sent as explicit nulls. On success the modal closes and the
// current page reloads; on failure the modal stays open and the error is
// surfaced as a notification.
func (c *Controller) Submit(ctx context.Context) {
	c.mu.Lock()
	if c.modalState == ModalClosed || c.form == nil {
		c.mu.Unlock()
		return
	}
	mode := c.modalState
	values := make(map[string]string, len(c.form))
	for k, v := range c.form {
		values[k] = v
	}
	editing := c.editing
	sch := c.schema
	operations := c.api
	c.mu.Unlock()

	if err := sch.ValidateForm(values); err != nil {
		c.notifier.Error(err.Error())
		return
	}

	payload := api.Record{}
	for _, f := range sch.Fields {
		parsed, err := f.Parse(values[f.Name])
		if err != nil {
			c.notifier.Error(fmt.Sprintf("%s: %v", f.Label, err))
			return
		}
		payload[f.Name] = parsed
	}

	var err error
	if mode == ModalEditing {
		_, err = operations.Update(ctx, editing.ID(sch.IDField), payload)
	} else {
		_, err = operations.Create(ctx, payload)
	}
	if err != nil {
		c.notifier.Error(apierrors.Message(err))
		return
	}

	if mode == ModalEditing {
		c.notifier.Success(sch.LabelSingle + " updated")
	} else {
		c.notifier.Success(sch.LabelSingle + " created")
	}
	c.CloseModal()
	c.Reload(ctx)
}

// RequestToggle asks for confirmation before archiving or reactivating rec;
// both directions are the same toggle operation.
func (c *Controller) RequestToggle(rec api.Record) {
	c.mu.Lock()
	c.confirmTarget = rec
	c.confirmState = ConfirmToggle
	c.mu.Unlock()
	c.emit()
}

// RequestHardDelete asks for confirmation before permanently deleting rec.
func (c *Controller) RequestHardDelete(rec api.Record) {
	c.mu.Lock()
	c.confirmTarget = rec
	c.confirmState = ConfirmHardDelete
	c.mu.Unlock()
	c.emit()
}

// CancelConfirm dismisses the pending confirmation.
func (c *Controller) CancelConfirm() {
	c.mu.Lock()
	c.confirmTarget = nil
	c.confirmState = ConfirmNone
	c.mu.Unlock()
	c.emit()
}

// ConfirmToggle runs the archive/unarchive toggle on the confirmed record
// and reloads the current page.
func (c *Controller) ConfirmToggle(ctx context.Context) {
	c.mu.Lock()
	rec := c.confirmTarget
	c.confirmTarget = nil
	c.confirmState = ConfirmNone
	sch := c.schema
	operations := c.api
	c.mu.Unlock()
	c.emit()
	if rec == nil {
		return
	}

	wasActive := rec.GetBool("isActive")
	if err := operations.Delete(ctx, rec.ID(sch.IDField)); err != nil {
		c.notifier.Error(apierrors.Message(err))
		return
	}
	if wasActive {
		c.notifier.Success(sch.DisplayNameOf(rec) + " archived")
	} else {
		c.notifier.Success(sch.DisplayNameOf(rec) + " reactivated")
	}
	c.Reload(ctx)
}

// CanHardDelete reports whether rec is still inside the permanence window
// at this instant; listings use it to decide whether to offer the action.
func (c *Controller) CanHardDelete(rec api.Record) bool {
	return harddelete.IsAllowed(rec["createdAt"], c.cfg.WindowSeconds)
}

// ConfirmHardDelete re-checks the window and runs the permanent delete.
// When the window expired between render and click, the operation fails
// fast client-side with no network call.
func (c *Controller) ConfirmHardDelete(ctx context.Context) {
	c.mu.Lock()
	rec := c.confirmTarget
	c.confirmTarget = nil
	c.confirmState = ConfirmNone
	sch := c.schema
	operations := c.api
	c.mu.Unlock()
	c.emit()
	if rec == nil {
		return
	}

	if !c.CanHardDelete(rec) {
		err := apierrors.WindowExpired()
		c.notifier.Error(apierrors.Message(err))
		return
	}
	if err := operations.HardDelete(ctx, rec.ID(sch.IDField)); err != nil {
		c.notifier.Error(apierrors.Message(err))
		return
	}
	c.notifier.Success(sch.DisplayNameOf(rec) + " permanently deleted")
	c.Reload(ctx)
}

// formValue stringifies a record field for the edit form.
func formValue(rec api.Record, name string) string {
	if name == "organizationCode" {
		if org, ok := rec["organization"].(map[string]any); ok {
			if code, ok := org["code"].(string); ok {
				return code
			}
		}
	}
	switch v := rec[name].(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
