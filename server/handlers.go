package server

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/unlearnai/dagster/errors"
	"github.com/unlearnai/dagster/logger"
	"github.com/unlearnai/dagster/observability"
	"github.com/unlearnai/dagster/runconfig"
	"github.com/unlearnai/dagster/util"
	"github.com/unlearnai/dagster/validation"
)

// SubmissionIDHeader lets a client choose the id of a validated submission.
const SubmissionIDHeader = "X-Submission-Id"

// JobSummary describes one job of the catalog.
type JobSummary struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Vocabulary  string            `json:"vocabulary"`
	Modes       []string          `json:"modes"`
	Nodes       []string          `json:"nodes"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// SchemaResponse is the run config schema of a job in one mode.
type SchemaResponse struct {
	Job        string         `json:"job"`
	Mode       string         `json:"mode"`
	Selection  []string       `json:"selection"`
	RootKey    string         `json:"root_key"`
	NodeKey    string         `json:"node_dictionary_key"`
	JSONSchema map[string]any `json:"json_schema"`
}

// ValidationResponse is a run config that passed validation.
type ValidationResponse struct {
	SubmissionID string                       `json:"submission_id"`
	RunConfig    *runconfig.ResolvedRunConfig `json:"run_config"`
}

func (s *Server) health(c *gin.Context) {
	h := observability.CheckAll(c.Request.Context(), s.service, s.version, s.catalog, s.cache)
	c.JSON(h.HTTPStatus(), h)
}

func (s *Server) listJobs(c *gin.Context) {
	names := s.catalog.Names()
	jobs := make([]JobSummary, 0, len(names))
	for _, name := range names {
		job, err := s.catalog.Job(name)
		if err != nil {
			continue
		}
		jobs = append(jobs, JobSummary{
			Name:        job.Name(),
			Description: job.Description(),
			Vocabulary:  job.Vocabulary().Key(),
			Modes:       job.ModeNames(),
			Nodes:       job.Graph().NodeNames(),
			Tags:        job.Tags(),
		})
	}
	writeData(c, jobs)
}

// schemaFor looks the job of the request up and returns its schema for the
// mode and select query parameters.
func (s *Server) schemaFor(c *gin.Context) (*runconfig.RunConfigSchema, error) {
	job, err := s.catalog.Job(c.Param("job"))
	if err != nil {
		return nil, err
	}
	return s.cache.Get(c.Request.Context(), job, c.Query("mode"), util.SplitList(c.Query("select")))
}

func (s *Server) getSchema(c *gin.Context) {
	rcs, err := s.schemaFor(c)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, SchemaResponse{
		Job:        rcs.Job.Name(),
		Mode:       rcs.Mode.Name(),
		Selection:  rcs.Selection.Selected,
		RootKey:    rcs.RootType().Key(),
		NodeKey:    rcs.NodeDictionaryKey(),
		JSONSchema: rcs.JSONSchema(),
	})
}

func (s *Server) getTypes(c *gin.Context) {
	rcs, err := s.schemaFor(c)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, rcs.Types.Summaries(c.Query("builtins") == "true"))
}

func (s *Server) getScaffold(c *gin.Context) {
	rcs, err := s.schemaFor(c)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, rcs.Scaffold(c.Query("optional") == "true"))
}

func (s *Server) validate(c *gin.Context) {
	id := c.GetHeader(SubmissionIDHeader)
	if err := validation.New().OptionalUUID("submission_id", id).Validate(); err != nil {
		writeError(c, err)
		return
	}
	if id == "" {
		id = uuid.NewString()
	}

	rcs, err := s.schemaFor(c)
	if err != nil {
		writeError(c, err)
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, errors.InvalidInput("body", err.Error()).WithCause(err))
		return
	}
	doc, err := runconfig.ParseDocument(body)
	if err != nil {
		writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	resolved, err := rcs.Resolve(ctx, doc)
	if err != nil {
		s.log.WithContext(ctx).WithJob(rcs.Job.Name(), rcs.Mode.Name()).Debug("run config rejected", logger.Fields(
			"submission_id", id,
			logger.FieldError, err.Error(),
		))
		writeError(c, err)
		return
	}
	c.Header(SubmissionIDHeader, id)
	writeData(c, ValidationResponse{SubmissionID: id, RunConfig: resolved})
}
