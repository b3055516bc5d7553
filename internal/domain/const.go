package domain

const (
	RequesterIdCtxKey   = "oc-requesterId"
	RequesterRoleCtxKey = "oc-requesterRole"
)

const (
	// RequesterIdHeader is set by the authenticating proxy in front of the server.
	RequesterIdHeader = "X-Office-User"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type NoteStatus string

const (
	NoteStatusOpen NoteStatus = "open"
	NoteStatusDone NoteStatus = "done"
)

type NoteScope string

const (
	NoteScopeInbox   NoteScope = "inbox"
	NoteScopeCreated NoteScope = "created"
	NoteScopeAll     NoteScope = "all"
)

// Activity entry types.
const (
	ActivityDMSent          = "dm_sent"
	ActivityDMRead          = "dm_read"
	ActivityNoteCreated     = "note_created"
	ActivityNoteUpdated     = "note_updated"
	ActivityNoteDone        = "note_done"
	ActivityNoteSnoozed     = "note_snoozed"
	ActivityNoteDeleted     = "note_deleted"
	ActivitySettingsUpdated = "settings_updated"
)
