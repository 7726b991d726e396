package models

import "github.com/google/uuid"

// ensureID assigns a fresh UUID when the caller left the primary key empty.
// Hooks call it so inserts do not depend on a database-side default.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
