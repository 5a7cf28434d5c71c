package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/readalongapp/readalong-server/internal/playback"
	"github.com/readalongapp/readalong-server/internal/session"
)

func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createSession",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions",
		Summary:     "Create session",
		Description: "Starts a read-along session from a stored document or raw paragraphs",
		Tags:        []string{"Sessions"},
	}, s.handleCreateSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSessions",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions",
		Summary:     "List sessions",
		Description: "Returns all live sessions, newest first",
		Tags:        []string{"Sessions"},
	}, s.handleListSessions)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSession",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}",
		Summary:     "Get session",
		Description: "Returns one session with its current playback state",
		Tags:        []string{"Sessions"},
	}, s.handleGetSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "stopSession",
		Method:      http.MethodDelete,
		Path:        "/api/v1/sessions/{id}",
		Summary:     "Stop session",
		Description: "Ends a session and saves the resume point",
		Tags:        []string{"Sessions"},
	}, s.handleStopSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "seekSession",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/seek",
		Summary:     "Seek",
		Description: "Moves the session to an absolute position in milliseconds",
		Tags:        []string{"Sessions"},
	}, s.handleSeekSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "seekSessionParagraph",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/seek-paragraph",
		Summary:     "Seek to paragraph",
		Description: "Jumps to the start of a paragraph",
		Tags:        []string{"Sessions"},
	}, s.handleSeekSessionParagraph)

	huma.Register(s.api, huma.Operation{
		OperationID: "pauseSession",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/pause",
		Summary:     "Pause",
		Description: "Stops the session clock without losing position",
		Tags:        []string{"Sessions"},
	}, s.handlePauseSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "resumeSession",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/resume",
		Summary:     "Resume",
		Description: "Restarts the session clock",
		Tags:        []string{"Sessions"},
	}, s.handleResumeSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "reportSessionPosition",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/position",
		Summary:     "Report position",
		Description: "Feeds the client's audio position into the sync loop for drift reconciliation",
		Tags:        []string{"Sessions"},
	}, s.handleReportSessionPosition)

	huma.Register(s.api, huma.Operation{
		OperationID: "reportSessionDuration",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/duration",
		Summary:     "Report duration",
		Description: "Rescales the estimated timeline to the actual audio duration",
		Tags:        []string{"Sessions"},
	}, s.handleReportSessionDuration)
}

// === DTOs ===

// CreateSessionRequest is the request body for starting a session.
type CreateSessionRequest struct {
	DocumentID     string   `json:"document_id,omitempty" doc:"Library document to read"`
	Paragraphs     []string `json:"paragraphs,omitempty" doc:"Raw paragraphs when no document is given"`
	Provider       string   `json:"provider,omitempty" doc:"TTS provider name, defaults to server settings"`
	Voice          string   `json:"voice,omitempty" doc:"Provider voice, defaults to server settings"`
	WordsPerMinute int      `json:"words_per_minute,omitempty" doc:"Reading speed for the initial timeline estimate"`
}

// CreateSessionInput wraps the create request for Huma.
type CreateSessionInput struct {
	Body CreateSessionRequest
}

// SessionResponse contains a session snapshot in API responses.
type SessionResponse struct {
	ID             string        `json:"id" doc:"Session ID"`
	DocumentID     string        `json:"document_id,omitempty" doc:"Backing document, empty for raw-paragraph sessions"`
	Provider       string        `json:"provider" doc:"TTS provider in use"`
	Voice          string        `json:"voice,omitempty" doc:"Provider voice in use"`
	ParagraphCount int           `json:"paragraph_count" doc:"Number of paragraphs"`
	Paragraphs     []string      `json:"paragraphs" doc:"Paragraph text in reading order"`
	CreatedAt      time.Time     `json:"created_at" doc:"Session start time"`
	State          PlaybackState `json:"state" doc:"Current playback state"`
}

// PlaybackState mirrors the sync engine's position snapshot.
type PlaybackState struct {
	ParagraphIndex   int   `json:"paragraph_index" doc:"Current paragraph, -1 before playback starts"`
	WordIndex        int   `json:"word_index" doc:"Current word within the paragraph, -1 when unknown"`
	TimeMs           int64 `json:"time_ms" doc:"Position in milliseconds"`
	TotalMs          int64 `json:"total_ms" doc:"Timeline length in milliseconds"`
	DriftMs          int64 `json:"drift_ms" doc:"Last measured drift against the client clock"`
	Running          bool  `json:"running" doc:"Whether the clock is advancing"`
	TimelineAccurate bool  `json:"timeline_accurate" doc:"True once the client reported the real audio duration"`
}

// SessionOutput wraps a session snapshot for Huma.
type SessionOutput struct {
	Body SessionResponse
}

// ListSessionsResponse contains the session list.
type ListSessionsResponse struct {
	Sessions []SessionResponse `json:"sessions" doc:"Live sessions, newest first"`
}

// ListSessionsOutput wraps the session list for Huma.
type ListSessionsOutput struct {
	Body ListSessionsResponse
}

// SessionIDInput identifies a session by path parameter.
type SessionIDInput struct {
	ID string `path:"id" doc:"Session ID"`
}

// SeekInput carries an absolute seek target.
type SeekInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body struct {
		PositionMs int64 `json:"position_ms" doc:"Target position in milliseconds"`
	}
}

// SeekParagraphInput carries a paragraph seek target.
type SeekParagraphInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body struct {
		Index int `json:"index" doc:"Target paragraph index"`
	}
}

// ReportPositionInput carries a client position report.
type ReportPositionInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body struct {
		PositionMs int64 `json:"position_ms" doc:"Client audio position in milliseconds"`
	}
}

// ReportDurationInput carries the measured audio duration.
type ReportDurationInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body struct {
		DurationMs int64 `json:"duration_ms" doc:"Actual audio duration in milliseconds"`
	}
}

// === Handlers ===

func (s *Server) handleCreateSession(ctx context.Context, input *CreateSessionInput) (*SessionOutput, error) {
	info, err := s.sessions.Create(ctx, session.CreateRequest{
		DocumentID:     input.Body.DocumentID,
		Paragraphs:     input.Body.Paragraphs,
		Provider:       input.Body.Provider,
		Voice:          input.Body.Voice,
		WordsPerMinute: input.Body.WordsPerMinute,
	})
	if err != nil {
		return nil, err
	}
	return &SessionOutput{Body: sessionResponse(info)}, nil
}

func (s *Server) handleListSessions(_ context.Context, _ *struct{}) (*ListSessionsOutput, error) {
	infos := s.sessions.List()
	resp := make([]SessionResponse, len(infos))
	for i := range infos {
		resp[i] = sessionResponse(&infos[i])
	}
	return &ListSessionsOutput{Body: ListSessionsResponse{Sessions: resp}}, nil
}

func (s *Server) handleGetSession(_ context.Context, input *SessionIDInput) (*SessionOutput, error) {
	info, err := s.sessions.Get(input.ID)
	if err != nil {
		return nil, err
	}
	return &SessionOutput{Body: sessionResponse(info)}, nil
}

func (s *Server) handleStopSession(_ context.Context, input *SessionIDInput) (*struct{}, error) {
	if err := s.sessions.Stop(input.ID); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}

func (s *Server) handleSeekSession(_ context.Context, input *SeekInput) (*SessionOutput, error) {
	if err := s.sessions.Seek(input.ID, input.Body.PositionMs); err != nil {
		return nil, err
	}
	return s.sessionSnapshot(input.ID)
}

func (s *Server) handleSeekSessionParagraph(_ context.Context, input *SeekParagraphInput) (*SessionOutput, error) {
	if err := s.sessions.SeekToParagraph(input.ID, input.Body.Index); err != nil {
		return nil, err
	}
	return s.sessionSnapshot(input.ID)
}

func (s *Server) handlePauseSession(_ context.Context, input *SessionIDInput) (*SessionOutput, error) {
	if err := s.sessions.Pause(input.ID); err != nil {
		return nil, err
	}
	return s.sessionSnapshot(input.ID)
}

func (s *Server) handleResumeSession(_ context.Context, input *SessionIDInput) (*SessionOutput, error) {
	if err := s.sessions.Resume(input.ID); err != nil {
		return nil, err
	}
	return s.sessionSnapshot(input.ID)
}

func (s *Server) handleReportSessionPosition(_ context.Context, input *ReportPositionInput) (*struct{}, error) {
	if err := s.sessions.ReportPosition(input.ID, input.Body.PositionMs); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}

func (s *Server) handleReportSessionDuration(_ context.Context, input *ReportDurationInput) (*SessionOutput, error) {
	if err := s.sessions.ReportDuration(input.ID, input.Body.DurationMs); err != nil {
		return nil, err
	}
	return s.sessionSnapshot(input.ID)
}

// sessionSnapshot returns the session state after a control operation so
// clients don't need a follow-up GET.
func (s *Server) sessionSnapshot(id string) (*SessionOutput, error) {
	info, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	return &SessionOutput{Body: sessionResponse(info)}, nil
}

func sessionResponse(info *session.Info) SessionResponse {
	return SessionResponse{
		ID:             info.ID,
		DocumentID:     info.DocumentID,
		Provider:       info.Provider,
		Voice:          info.Voice,
		ParagraphCount: info.ParagraphCount,
		Paragraphs:     info.Paragraphs,
		CreatedAt:      info.CreatedAt,
		State:          playbackState(info.State),
	}
}

func playbackState(st playback.State) PlaybackState {
	return PlaybackState{
		ParagraphIndex:   st.ParagraphIndex,
		WordIndex:        st.WordIndex,
		TimeMs:           st.TimeMs,
		TotalMs:          st.TotalMs,
		DriftMs:          st.DriftMs,
		Running:          st.Running,
		TimelineAccurate: st.TimelineAccurate,
	}
}
