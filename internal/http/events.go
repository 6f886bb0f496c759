package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tazhibayda/event-service/internal/event"
)

type eventForm struct {
	Name        string `form:"name"        json:"name"        binding:"required,max=100"`
	Description string `form:"description" json:"description" binding:"required,max=2000"`
	Date        string `form:"date"        json:"date"        binding:"required"`
	Time        string `form:"time"        json:"time"        binding:"required,max=20"`
	Category    string `form:"category"    json:"category"    binding:"required,max=50"`
	Location    string `form:"location"    json:"location"    binding:"required,max=200"`
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

func parseDate(s string) (time.Time, bool) {
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// readEvent binds the multipart form and opens the optional event-image upload.
// The returned close func is never nil.
func readEvent(c *gin.Context) (event.Input, *event.Image, func(), bool) {
	noop := func() {}
	var f eventForm
	if !bind(c, &f) {
		return event.Input{}, nil, noop, false
	}
	date, ok := parseDate(f.Date)
	if !ok {
		fail(c, http.StatusBadRequest, "Date is invalid", []FieldError{{Field: "date", Message: "Date is invalid"}})
		return event.Input{}, nil, noop, false
	}
	in := event.Input{
		Name: f.Name, Description: f.Description, Date: date,
		Time: f.Time, Category: f.Category, Location: f.Location,
	}

	fh, err := c.FormFile("event-image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return in, nil, noop, true
		}
		fail(c, http.StatusBadRequest, "Invalid image upload", err.Error())
		return event.Input{}, nil, noop, false
	}
	file, err := fh.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid image upload", err.Error())
		return event.Input{}, nil, noop, false
	}
	img := &event.Image{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        file,
	}
	return in, img, func() { _ = file.Close() }, true
}

// CreateEvent godoc
// @Summary Create event
// @Tags events
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param name formData string true "name"
// @Param description formData string true "description"
// @Param date formData string true "date (YYYY-MM-DD or RFC3339)"
// @Param time formData string true "time"
// @Param category formData string true "category"
// @Param location formData string true "location"
// @Param event-image formData file false "image"
// @Success 201 {object} Envelope
// @Failure 400 {object} Envelope
// @Failure 401 {object} Envelope
// @Router /api/event/create-event [post]
func (h *Handler) CreateEvent(c *gin.Context) {
	in, img, closeImg, valid := readEvent(c)
	defer closeImg()
	if !valid {
		return
	}
	e, err := h.Events.Create(c.Request.Context(), c.GetString(uidKey), in, img)
	if err != nil {
		respondErr(c, err)
		return
	}
	ok(c, http.StatusCreated, "Event created successfully", e)
}

// UpdateEvent godoc
// @Summary Update event (organizer only)
// @Tags events
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "event id"
// @Success 200 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /api/event/{id}/update [post]
func (h *Handler) UpdateEvent(c *gin.Context) {
	in, img, closeImg, valid := readEvent(c)
	defer closeImg()
	if !valid {
		return
	}
	e, err := h.Events.Update(c.Request.Context(), c.Param("id"), c.GetString(uidKey), in, img)
	if err != nil {
		respondErr(c, err)
		return
	}
	ok(c, http.StatusOK, "Event updated successfully", e)
}

// ListEvents godoc
// @Summary List events
// @Tags events
// @Produce json
// @Success 200 {object} Envelope
// @Router /api/event/list [get]
func (h *Handler) ListEvents(c *gin.Context) {
	list, err := h.Events.List(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	ok(c, http.StatusOK, "Events fetched successfully", list)
}

// GetEvent godoc
// @Summary Event with organizer and attendees
// @Tags events
// @Produce json
// @Param id path string true "event id"
// @Success 200 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /api/event/{id} [get]
func (h *Handler) GetEvent(c *gin.Context) {
	e, err := h.Events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	ok(c, http.StatusOK, "Event retrieved successfully", e)
}

// JoinEvent godoc
// @Summary Join event
// @Tags events
// @Security BearerAuth
// @Produce json
// @Param id path string true "event id"
// @Success 200 {object} Envelope
// @Failure 400 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /api/event/{id}/join [get]
func (h *Handler) JoinEvent(c *gin.Context) {
	e, err := h.Events.Join(c.Request.Context(), c.Param("id"), c.GetString(uidKey))
	if err != nil {
		respondErr(c, err)
		return
	}
	ok(c, http.StatusOK, "You have joined the event", e)
}

// LeaveEvent godoc
// @Summary Leave event
// @Tags events
// @Security BearerAuth
// @Produce json
// @Param id path string true "event id"
// @Success 200 {object} Envelope
// @Failure 400 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /api/event/{id}/leave [get]
func (h *Handler) LeaveEvent(c *gin.Context) {
	e, err := h.Events.Leave(c.Request.Context(), c.Param("id"), c.GetString(uidKey))
	if err != nil {
		respondErr(c, err)
		return
	}
	ok(c, http.StatusOK, "You have left the event", e)
}

// DeleteEvent godoc
// @Summary Delete event (organizer only)
// @Tags events
// @Security BearerAuth
// @Produce json
// @Param id path string true "event id"
// @Success 200 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /api/event/{id}/delete [get]
func (h *Handler) DeleteEvent(c *gin.Context) {
	if err := h.Events.Delete(c.Request.Context(), c.Param("id"), c.GetString(uidKey)); err != nil {
		respondErr(c, err)
		return
	}
	ok(c, http.StatusOK, "Event deleted successfully", nil)
}
