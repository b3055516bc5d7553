package rest

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/totegamma/officechat/internal/domain"
	"github.com/totegamma/officechat/internal/present/rest/middleware"
	"github.com/totegamma/officechat/internal/present/rest/presenter"
	"github.com/totegamma/officechat/internal/service"
	"github.com/totegamma/officechat/internal/usecase"
)

type Handler struct {
	directory usecase.Directory
	message   *usecase.MessageUsecase
	note      *usecase.NoteUsecase
	activity  *usecase.ActivityUsecase
	settings  *usecase.SettingsUsecase
	presence  *service.PresenceTracker
	auth      *middleware.AuthMiddleware
	sent      *cache.Cache
}

func NewHandler(
	directory usecase.Directory,
	message *usecase.MessageUsecase,
	note *usecase.NoteUsecase,
	activity *usecase.ActivityUsecase,
	settings *usecase.SettingsUsecase,
	presence *service.PresenceTracker,
	auth *middleware.AuthMiddleware,
) *Handler {
	return &Handler{
		directory: directory,
		message:   message,
		note:      note,
		activity:  activity,
		settings:  settings,
		presence:  presence,
		auth:      auth,
		sent:      cache.New(sendDedupeWindow, 2*sendDedupeWindow),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api", h.auth.RequireIdentity)
	api.GET("/me", h.handleMe)
	api.GET("/users", h.handleUsers)
	api.GET("/online", h.handleOnline)
	api.GET("/settings", h.handleSettings)
	api.POST("/admin/settings", h.handleUpdateSettings)
	api.GET("/admin/activity", h.handleActivity)
	api.GET("/unread_counts", h.handleUnreadCounts)
	api.GET("/messages/:otherId", h.handleHistory)
	api.POST("/messages/:otherId", h.handleSend)
	api.POST("/messages/:otherId/read", h.handleMarkRead)
	api.GET("/notes", h.handleListNotes)
	api.POST("/notes", h.handleCreateNote)
	api.POST("/notes/mark_seen", h.handleMarkSeen)
	api.PATCH("/notes/:id", h.handleEditNote)
	api.POST("/notes/:id/done", h.handleCompleteNote)
	api.POST("/notes/:id/snooze", h.handleSnoozeNote)
	api.DELETE("/notes/:id", h.handleDeleteNote)

	e.GET("/realtime", h.handleRealtime, h.auth.RequireIdentity)
}

func (h *Handler) handleMe(c echo.Context) error {
	ctx := c.Request().Context()
	identity, err := h.directory.Lookup(ctx, middleware.RequesterID(ctx))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, identity)
}

func (h *Handler) handleUsers(c echo.Context) error {
	users, err := h.directory.List(c.Request().Context())
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"users": users})
}

func (h *Handler) handleOnline(c echo.Context) error {
	return presenter.OK(c, domain.PresencePayload{Online: h.presence.OnlineSet()})
}

func (h *Handler) handleSettings(c echo.Context) error {
	return presenter.OK(c, echo.Map{"settings": h.settings.Get(c.Request().Context())})
}

func (h *Handler) handleUpdateSettings(c echo.Context) error {
	ctx := c.Request().Context()

	var patch usecase.SettingsPatch
	if err := c.Bind(&patch); err != nil {
		return presenter.BadRequest(c, err)
	}

	settings, err := h.settings.Update(ctx, middleware.RequesterID(ctx), patch)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"ok": true, "settings": settings})
}

func (h *Handler) handleActivity(c echo.Context) error {
	ctx := c.Request().Context()

	limit := usecase.DefaultActivityLimit
	limitStr := c.QueryParam("limit")
	if limitStr != "" {
		limitInt, err := strconv.Atoi(limitStr)
		if err != nil {
			return presenter.BadRequestMessage(c, "invalid limit parameter")
		}
		limit = max(limitInt, 1)
	}

	items, err := h.activity.List(ctx, middleware.RequesterID(ctx), limit)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"items": items})
}

func (h *Handler) handleUnreadCounts(c echo.Context) error {
	ctx := c.Request().Context()
	counts, err := h.message.UnreadCounts(ctx, middleware.RequesterID(ctx))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"counts": counts})
}

func (h *Handler) handleHistory(c echo.Context) error {
	ctx := c.Request().Context()

	limit := usecase.HistoryLimit
	limitStr := c.QueryParam("limit")
	if limitStr != "" {
		limitInt, err := strconv.Atoi(limitStr)
		if err != nil || limitInt < 1 {
			return presenter.BadRequestMessage(c, "invalid limit parameter")
		}
		limit = limitInt
	}

	msgs, err := h.message.History(ctx, middleware.RequesterID(ctx), c.Param("otherId"), limit)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"messages": msgs})
}

type sendRequest struct {
	Text string `json:"text"`
}

func (h *Handler) handleSend(c echo.Context) error {
	ctx := c.Request().Context()

	var req sendRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	msg, err := h.message.Send(ctx, middleware.RequesterID(ctx), c.Param("otherId"), req.Text)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"ok": true, "message": msg})
}

func (h *Handler) handleMarkRead(c echo.Context) error {
	ctx := c.Request().Context()

	n, err := h.message.MarkRead(ctx, middleware.RequesterID(ctx), c.Param("otherId"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"ok": true, "marked": n})
}

func (h *Handler) handleListNotes(c echo.Context) error {
	ctx := c.Request().Context()

	notes, err := h.note.List(ctx, middleware.RequesterID(ctx), domain.NoteScope(c.QueryParam("scope")))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"notes": notes})
}

type createNoteRequest struct {
	Text      string          `json:"text"`
	Assignees []string        `json:"assignees"`
	DueAt     json.RawMessage `json:"dueAt"`
	Important bool            `json:"important"`
}

func (h *Handler) handleCreateNote(c echo.Context) error {
	ctx := c.Request().Context()

	var req createNoteRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	due, err := parseTimestamp(req.DueAt)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid dueAt")
	}

	note, err := h.note.Create(ctx, middleware.RequesterID(ctx), usecase.NoteInput{
		Text:      req.Text,
		Assignees: req.Assignees,
		DueAt:     due,
		Important: req.Important,
	})
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"ok": true, "note": note})
}

type markSeenRequest struct {
	NoteIDs []string `json:"noteIds"`
}

func (h *Handler) handleMarkSeen(c echo.Context) error {
	ctx := c.Request().Context()

	var req markSeenRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	n, err := h.note.MarkSeen(ctx, middleware.RequesterID(ctx), req.NoteIDs)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"ok": true, "marked": n})
}

// handleEditNote distinguishes absent fields from explicit nulls: "dueAt": null clears the due time.
func (h *Handler) handleEditNote(c echo.Context) error {
	ctx := c.Request().Context()

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&fields); err != nil {
		return presenter.BadRequest(c, err)
	}

	var patch usecase.NotePatch
	if raw, ok := fields["text"]; ok {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return presenter.BadRequestMessage(c, "invalid text")
		}
		patch.Text = &text
	}
	if raw, ok := fields["important"]; ok {
		var important bool
		if err := json.Unmarshal(raw, &important); err != nil {
			return presenter.BadRequestMessage(c, "invalid important")
		}
		patch.Important = &important
	}
	if raw, ok := fields["assignees"]; ok {
		var assignees []string
		if err := json.Unmarshal(raw, &assignees); err != nil {
			return presenter.BadRequestMessage(c, "invalid assignees")
		}
		if assignees == nil {
			assignees = []string{}
		}
		patch.Assignees = &assignees
	}
	if raw, ok := fields["dueAt"]; ok {
		due, err := parseTimestamp(raw)
		if err != nil {
			return presenter.BadRequestMessage(c, "invalid dueAt")
		}
		patch.DueAt = due
		patch.ClearDueAt = due == nil
	}

	note, err := h.note.Edit(ctx, middleware.RequesterID(ctx), c.Param("id"), patch)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"ok": true, "note": note})
}

func (h *Handler) handleCompleteNote(c echo.Context) error {
	ctx := c.Request().Context()

	note, err := h.note.Complete(ctx, middleware.RequesterID(ctx), c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"ok": true, "note": note})
}

type snoozeRequest struct {
	Minutes int `json:"minutes"`
}

func (h *Handler) handleSnoozeNote(c echo.Context) error {
	ctx := c.Request().Context()

	var req snoozeRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	note, err := h.note.Snooze(ctx, middleware.RequesterID(ctx), c.Param("id"), req.Minutes)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"ok": true, "note": note})
}

func (h *Handler) handleDeleteNote(c echo.Context) error {
	ctx := c.Request().Context()

	err := h.note.Delete(ctx, middleware.RequesterID(ctx), c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"ok": true})
}

// parseTimestamp accepts null, epoch milliseconds, or an RFC 3339 string.
func parseTimestamp(raw json.RawMessage) (*time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		if s == "" {
			return nil, nil
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, err
		}
		t = t.UTC()
		return &t, nil
	}
	var ms int64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return nil, err
	}
	if ms == 0 {
		return nil, nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t, nil
}
