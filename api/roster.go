package api

import (
	"net/http"
	"strings"

	"github.com/garderieflow/backoffice/calendar"
	"github.com/garderieflow/backoffice/core"
	"github.com/garderieflow/backoffice/store/sqlstore"
)

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

// ListStudents supports ?status=&search=.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	q := sqlstore.StudentQuery{
		Status: core.StudentStatus(r.URL.Query().Get("status")),
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
	}
	if q.Status != "" && !q.Status.Valid() {
		respondError(w, core.Invalid("status", "unknown student status %q", q.Status))
		return
	}

	students, err := h.Store.ListStudents(r.Context(), orgID(r), q)
	if err != nil {
		respondError(w, err)
		return
	}
	dtos := make([]StudentDTO, len(students))
	for i, s := range students {
		dtos[i] = toStudentDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req StudentRequest
	if !bind(w, r, &req, false) {
		return
	}

	st := core.Student{
		OrganizationID:  orgID(r),
		Firstname:       req.Firstname,
		Lastname:        req.Lastname,
		Birthdate:       req.Birthdate,
		Gender:          req.Gender,
		School:          req.School,
		InscriptionDate: calendar.Today(h.Clock),
		Status:          core.StudentActive,
		Notes:           req.Notes,
	}
	if req.InscriptionDate != nil {
		st.InscriptionDate = *req.InscriptionDate
	}
	if req.Status != "" {
		st.Status = core.StudentStatus(req.Status)
	}

	if err := h.Store.CreateStudent(r.Context(), &st); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStudentDTO(st))
}

// GetStudent returns the student with contacts, enrollments and transactions.
func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	detail, err := h.Store.GetStudentDetail(r.Context(), orgID(r), id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDetailDTO(detail))
}

func (h *Handler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req StudentUpdateRequest
	if !bind(w, r, &req, false) {
		return
	}

	st, err := h.Store.UpdateStudent(r.Context(), orgID(r), id, req.toUpdate())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(*st))
}

func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.Store.DeleteStudent(r.Context(), orgID(r), id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ArchiveStudent(w http.ResponseWriter, r *http.Request) {
	h.setStudentStatus(w, r, core.StudentArchived)
}

func (h *Handler) ReactivateStudent(w http.ResponseWriter, r *http.Request) {
	h.setStudentStatus(w, r, core.StudentActive)
}

func (h *Handler) setStudentStatus(w http.ResponseWriter, r *http.Request, status core.StudentStatus) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	st, err := h.Store.SetStudentStatus(r.Context(), orgID(r), id, status)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(*st))
}

// =============================================================================
// CONTACT HANDLERS
// =============================================================================

func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	studentID, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	contacts, err := h.Store.Contacts(r.Context(), orgID(r), studentID)
	if err != nil {
		respondError(w, err)
		return
	}
	dtos := make([]ContactDTO, len(contacts))
	for i, c := range contacts {
		dtos[i] = toContactDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) AddContact(w http.ResponseWriter, r *http.Request) {
	studentID, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req ContactRequest
	if !bind(w, r, &req, false) {
		return
	}

	c := core.ParentContact{
		StudentID:   studentID,
		Type:        core.ContactType(req.Type),
		Value:       req.Value,
		IsPrincipal: req.IsPrincipal,
		Firstname:   req.Firstname,
		Lastname:    req.Lastname,
		Relation:    core.Relation(req.Relation),
	}
	if err := h.Store.AddContact(r.Context(), orgID(r), &c); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toContactDTO(c))
}

func (h *Handler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	studentID, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	contactID, err := pathID(r, "contactID")
	if err != nil {
		respondError(w, err)
		return
	}
	var req ContactUpdateRequest
	if !bind(w, r, &req, false) {
		return
	}

	c, err := h.Store.UpdateContact(r.Context(), orgID(r), studentID, contactID, req.toUpdate())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContactDTO(*c))
}

func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	studentID, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	contactID, err := pathID(r, "contactID")
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.Store.DeleteContact(r.Context(), orgID(r), studentID, contactID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CATEGORY HANDLERS
// =============================================================================

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Store.Categories(r.Context(), orgID(r))
	if err != nil {
		respondError(w, err)
		return
	}
	dtos := make([]CategoryDTO, len(cats))
	for i, c := range cats {
		dtos[i] = toCategoryDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !bind(w, r, &req, false) {
		return
	}
	c := core.TransactionCategory{OrganizationID: orgID(r), Label: strings.TrimSpace(req.Label)}
	if err := h.Store.CreateCategory(r.Context(), &c); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryDTO(c))
}

func (h *Handler) RenameCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req CategoryRequest
	if !bind(w, r, &req, false) {
		return
	}
	c, err := h.Store.RenameCategory(r.Context(), orgID(r), id, strings.TrimSpace(req.Label))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDTO(*c))
}

// DeleteCategory refuses system categories with 409.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.Store.DeleteCategory(r.Context(), orgID(r), id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
