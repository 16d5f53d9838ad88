// Package server exposes the skill repository and execution engine over
// HTTP, grounded on the teacher pack's go-chi router/middleware idiom
// (chi.NewRouter, middleware.Logger/Recoverer, a writeJSON/writeError
// handler style) adapted to the Skill execute/resume/validate surface.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/skillrun/skillrun/internal/logging"
	kctx "github.com/skillrun/skillrun/pkg/kernel/context"
	"github.com/skillrun/skillrun/pkg/kernel/engine"
	"github.com/skillrun/skillrun/pkg/kernel/markdown"
	"github.com/skillrun/skillrun/pkg/kernel/schema"
	"github.com/skillrun/skillrun/pkg/kernel/validate"
	"github.com/skillrun/skillrun/pkg/repo"
)

// Server bundles the dependencies every handler needs.
type Server struct {
	Repo   *repo.Repository
	Engine *engine.Engine
	Log    logging.Logger
	// Tools is the known-tool set the comprehensive validator checks
	// TOOL steps against; nil skips those checks entirely.
	Tools map[string]validate.KnownTool
}

// New builds a Server. log may be nil, in which case it defaults to a
// no-op logger.
func New(r *repo.Repository, eng *engine.Engine, log logging.Logger, tools map[string]validate.KnownTool) *Server {
	if log == nil {
		log = logging.Noop{}
	}
	return &Server{Repo: r, Engine: eng, Log: log, Tools: tools}
}

// Router builds the chi.Router mounting every handler in the HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/skills", s.listSkills)
	r.Get("/skills/{id}", s.getSkill)
	r.Post("/skills/execute", s.executeSkill)
	r.Post("/skills/resume", s.resumeSkill)
	r.Post("/skills/validate", s.validateMarkdown)
	r.Get("/validate/skills", s.validateAllSkills)
	return r
}

// --- GET /skills ---

type skillSummary struct {
	ID           string                       `json:"id"`
	Version      string                       `json:"version"`
	Description  string                       `json:"description"`
	Intents      []string                     `json:"intents"`
	InputSchema  map[string]schema.FieldSpec  `json:"input_schema"`
	OutputSchema map[string]schema.FieldSpec  `json:"output_schema"`
}

func summarize(sk *schema.Skill) skillSummary {
	return skillSummary{
		ID:           sk.ID,
		Version:      sk.Version,
		Description:  sk.Description,
		Intents:      sk.Intents,
		InputSchema:  sk.InputSchema,
		OutputSchema: sk.OutputContract.Fields,
	}
}

func (s *Server) listSkills(w http.ResponseWriter, r *http.Request) {
	skills := s.Repo.List()
	out := make([]skillSummary, 0, len(skills))
	for _, sk := range skills {
		out = append(out, summarize(sk))
	}
	writeJSON(w, http.StatusOK, out)
}

// --- GET /skills/{id} ---

func (s *Server) getSkill(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sk, ok := s.Repo.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "skill not found: "+id)
		return
	}
	if v := r.URL.Query().Get("version"); v != "" && v != sk.Version {
		writeError(w, http.StatusNotFound, "skill version not found: "+id+"@"+v)
		return
	}
	writeJSON(w, http.StatusOK, summarize(sk))
}

// --- POST /skills/execute & /skills/resume ---

type executeRequest struct {
	SkillID       string         `json:"skillId"`
	SkillMarkdown string         `json:"skillMarkdown"`
	Version       string         `json:"version"`
	Inputs        map[string]any `json:"inputs"`
	Adapter       string         `json:"adapter"`
}

type resumeRequest struct {
	ExecutionID   string         `json:"executionId"`
	SkillID       string         `json:"skillId"`
	SkillMarkdown string         `json:"skillMarkdown"`
	Version       string         `json:"version"`
	Inputs        map[string]any `json:"inputs"`
	Adapter       string         `json:"adapter"`
}

type executeResponse struct {
	Status       string                      `json:"status"`
	Success      bool                        `json:"success"`
	SkillID      string                      `json:"skillId"`
	Version      string                      `json:"version"`
	ExecutionID  string                      `json:"executionId,omitempty"`
	Output       map[string]any              `json:"output,omitempty"`
	Error        string                      `json:"error,omitempty"`
	AwaitMessage string                      `json:"awaitMessage,omitempty"`
	AwaitSchema  map[string]awaitFieldSchema `json:"awaitSchema,omitempty"`
	DurationMS   int64                       `json:"durationMs"`
}

type awaitFieldSchema struct {
	Type        schema.FieldType `json:"type"`
	Required    bool             `json:"required"`
	Description string           `json:"description,omitempty"`
}

func toResponse(sk *schema.Skill, result kctx.SkillResult) executeResponse {
	resp := executeResponse{
		SkillID:     sk.ID,
		Version:     sk.Version,
		ExecutionID: result.ExecutionID,
		DurationMS:  result.Duration.Milliseconds(),
	}
	switch result.Kind {
	case kctx.ResultSuccess:
		resp.Status = "COMPLETED"
		resp.Success = true
		resp.Output = result.Output
	case kctx.ResultFailure:
		resp.Status = "FAILED"
		resp.Success = false
		resp.Error = result.Error
	case kctx.ResultAwaiting:
		resp.Status = "WAITING_FOR_INPUT"
		resp.Success = true
		if result.AwaitRequest != nil {
			resp.AwaitMessage = result.AwaitRequest.Message
			resp.AwaitSchema = make(map[string]awaitFieldSchema, len(result.AwaitRequest.InputSchema))
			for name, spec := range result.AwaitRequest.InputSchema {
				resp.AwaitSchema[name] = awaitFieldSchema{Type: spec.Type, Required: spec.Required, Description: spec.Description}
			}
		}
	}
	return resp
}

// resolveSkill loads a Skill either from the repository by id, or by
// parsing an inline Markdown document supplied directly in the request.
func (s *Server) resolveSkill(id, version, inlineMarkdown string) (*schema.Skill, error) {
	if inlineMarkdown != "" {
		return markdown.Parse([]byte(inlineMarkdown))
	}
	sk, ok := s.Repo.Get(id)
	if !ok {
		return nil, errSkillNotFound{id: id}
	}
	if version != "" && version != sk.Version {
		return nil, errSkillNotFound{id: id + "@" + version}
	}
	return sk, nil
}

type errSkillNotFound struct{ id string }

func (e errSkillNotFound) Error() string { return "skill not found: " + e.id }

func (s *Server) executeSkill(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	sk, err := s.resolveSkill(req.SkillID, req.Version, req.SkillMarkdown)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	inputs, err := engine.ResolveInput(sk, req.Inputs)
	if err != nil {
		writeJSON(w, http.StatusOK, executeResponse{
			Status: "FAILED", Success: false, SkillID: sk.ID, Version: sk.Version, Error: err.Error(),
		})
		return
	}
	result := s.Engine.Execute(r.Context(), sk, inputs)
	writeJSON(w, http.StatusOK, toResponse(sk, result))
}

func (s *Server) resumeSkill(w http.ResponseWriter, r *http.Request) {
	var req resumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	sk, err := s.resolveSkill(req.SkillID, req.Version, req.SkillMarkdown)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	result, err := s.Engine.Resume(r.Context(), sk, req.ExecutionID, req.Inputs)
	if err != nil {
		switch err.(type) {
		case *engine.ErrExecutionNotFound:
			writeError(w, http.StatusNotFound, err.Error())
		case *engine.ErrExecutionAlreadyCompleted:
			writeError(w, http.StatusConflict, err.Error())
		case *engine.ErrInputValidation:
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, toResponse(sk, result))
}

// --- POST /skills/validate ---

type validateRequest struct {
	Markdown string `json:"markdown"`
}

type validateResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func (s *Server) validateMarkdown(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if _, err := markdown.Parse([]byte(req.Markdown)); err != nil {
		writeJSON(w, http.StatusOK, validateResponse{Valid: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: true})
}

// --- GET /validate/skills ---

func (s *Server) validateAllSkills(w http.ResponseWriter, r *http.Request) {
	skills := s.Repo.List()
	out := make(map[string]validate.SkillValidationReport, len(skills))
	for _, sk := range skills {
		out[sk.ID] = validate.ValidateSkill(sk, s.Tools)
	}
	writeJSON(w, http.StatusOK, out)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
