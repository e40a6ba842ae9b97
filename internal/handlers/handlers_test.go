package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotter-org/cs-ai-agent/internal/jobs"
	"github.com/slotter-org/cs-ai-agent/internal/repos"
	"github.com/slotter-org/cs-ai-agent/internal/services"
	"github.com/slotter-org/cs-ai-agent/internal/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAssistant struct {
	services.AssistantService
	postedMode types.Mode
	postedFile []string
	status     types.RunStatus
	last       string
	history    []types.ThreadMessage
	err        error
}

func (f *fakeAssistant) PostMessage(_ context.Context, _ string, _ string, mode types.Mode, fileIDs []string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.postedMode = mode
	f.postedFile = fileIDs
	return "run_1", nil
}

func (f *fakeAssistant) RunStatus(context.Context, string, string) (types.RunStatus, error) {
	return f.status, f.err
}

func (f *fakeAssistant) RetrieveLastMessage(context.Context, string) (string, error) {
	return f.last, f.err
}

func (f *fakeAssistant) Complete(_ context.Context, _ types.Mode, history []types.ThreadMessage) (string, error) {
	f.history = history
	return "hi there", f.err
}

type fakeReminders struct {
	services.ReminderService
	saved map[string]bool
	tasks []*types.Task
	err   error
}

func (f *fakeReminders) SaveStatus(_ context.Context, id string) (bool, error) {
	return f.saved[id], f.err
}

func (f *fakeReminders) ScanAndNotify(context.Context, string) ([]*types.Task, error) {
	return f.tasks, f.err
}

type fakeData struct {
	services.TaskDataService
	patch   types.TaskPatch
	deleted string
	err     error
}

func (f *fakeData) UpdateTask(_ context.Context, id string, patch types.TaskPatch) (*types.Task, error) {
	f.patch = patch
	if f.err != nil {
		return nil, f.err
	}
	return &types.Task{ID: uuid.MustParse(id)}, nil
}

func (f *fakeData) DeleteTask(_ context.Context, id string) error {
	f.deleted = id
	return f.err
}

type fakeMedia struct {
	services.MediaService
	names []string
}

func (f *fakeMedia) TranscribeAudio(_ context.Context, uploads []services.Upload) (string, error) {
	for _, u := range uploads {
		f.names = append(f.names, u.Name)
		_, _ = io.ReadAll(u.Reader)
	}
	return "hello world", nil
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestPostMessageAndStatus(t *testing.T) {
	fa := &fakeAssistant{status: types.RunStatusCompleted}
	h := NewChatHandler(fa)
	r := gin.New()
	r.POST("/post", h.PostMessage)
	r.POST("/status", h.GetStatus)

	w := doJSON(t, r, http.MethodPost, "/post", map[string]interface{}{
		"userMessage": "hi", "mode": "casual", "threadId": "t1", "file_ids_LIST": []string{"f1"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "run_1", decode(t, w)["id_of_run"])
	assert.Equal(t, types.ModeCasual, fa.postedMode)
	assert.Equal(t, []string{"f1"}, fa.postedFile)

	w = doJSON(t, r, http.MethodPost, "/status", map[string]string{"thread_id": "t1", "id_of_run": "run_1"})
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.Equal(t, true, out["run_completed"])
	assert.Equal(t, "completed", out["status"])

	w = doJSON(t, r, http.MethodPost, "/post", map[string]string{"threadId": "t1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpstreamErrorIsGeneric(t *testing.T) {
	fa := &fakeAssistant{err: fmt.Errorf("create run: 401 bad key sk-123")}
	r := gin.New()
	r.POST("/post", NewChatHandler(fa).PostMessage)

	w := doJSON(t, r, http.MethodPost, "/post", map[string]string{"userMessage": "hi", "mode": "casual", "threadId": "t1"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "sk-123")
}

func TestValidationErrorIs400(t *testing.T) {
	fa := &fakeAssistant{err: fmt.Errorf("%w: unknown mode", services.ErrValidation)}
	r := gin.New()
	r.POST("/post", NewChatHandler(fa).PostMessage)

	w := doJSON(t, r, http.MethodPost, "/post", map[string]string{"userMessage": "hi", "mode": "x", "threadId": "t1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRetrieveMessageStripsFenceInTranscriptMode(t *testing.T) {
	fa := &fakeAssistant{last: "```json\n{\"nl_answer_to_user\":\"ok\"}\n```"}
	r := gin.New()
	r.POST("/msg", NewChatHandler(fa).RetrieveMessage)

	w := doJSON(t, r, http.MethodPost, "/msg", map[string]string{"threadId": "t1", "mode": "transcript"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"nl_answer_to_user":"ok"}`, decode(t, w)["response"])
}

func TestChatAppendsPrompt(t *testing.T) {
	fa := &fakeAssistant{}
	r := gin.New()
	r.POST("/chat", NewChatHandler(fa).Chat)

	w := doJSON(t, r, http.MethodPost, "/chat", map[string]interface{}{
		"prompt": "and now?", "mode": "casual",
		"messagesHistory": []map[string]string{{"role": "user", "content": "hello"}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hi there", decode(t, w)["answer"])
	require.Len(t, fa.history, 2)
	assert.Equal(t, "and now?", fa.history[1].Content)
}

func TestSaveReminderStartEnqueues(t *testing.T) {
	queue := jobs.NewLocalQueue(1)
	h := NewSaveReminderHandler(queue, &fakeReminders{})
	r := gin.New()
	r.POST("/start", h.Start)

	w := doJSON(t, r, http.MethodPost, "/start", map[string]interface{}{"transcript_text": "", "tasks_times": []interface{}{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/start", map[string]interface{}{
		"transcript_text": "notes", "unique_id": "u-1",
		"tasks_times": []map[string]string{{"action_item": "A", "start_datetime": "2025-02-07T10:00"}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	job, err := queue.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u-1", job.Request.UniqueID)
	require.Len(t, job.Request.TasksTimes, 1)

	require.NoError(t, queue.Enqueue(ctx, jobs.SaveJob{}))
	w = doJSON(t, r, http.MethodPost, "/start", map[string]interface{}{"transcript_text": "notes"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSaveReminderStatus(t *testing.T) {
	h := NewSaveReminderHandler(jobs.NewLocalQueue(1), &fakeReminders{saved: map[string]bool{"u-1": true}})
	r := gin.New()
	r.GET("/status", h.GetStatus)

	w := doJSON(t, r, http.MethodGet, "/status?unique_id=u-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])

	w = doJSON(t, r, http.MethodGet, "/status?unique_id=u-2", nil)
	assert.Equal(t, false, decode(t, w)["success"])

	w = doJSON(t, r, http.MethodGet, "/status", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateTaskParsesPartialPatch(t *testing.T) {
	fd := &fakeData{}
	r := gin.New()
	r.POST("/update", NewDataHandler(fd).UpdateTask)
	id := uuid.NewString()

	w := doJSON(t, r, http.MethodPost, "/update", map[string]interface{}{
		"id": id, "completed": true, "start_datetime": "2025-02-07T10:00", "unknown": 1,
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, fd.patch.Completed)
	assert.True(t, *fd.patch.Completed)
	require.NotNil(t, fd.patch.StartDatetime)
	assert.Equal(t, time.Date(2025, 2, 7, 10, 0, 0, 0, time.UTC), *fd.patch.StartDatetime)
	assert.Nil(t, fd.patch.ActionItem)

	w = doJSON(t, r, http.MethodPost, "/update", map[string]interface{}{"id": id, "start_datetime": "soon"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteTaskNotFound(t *testing.T) {
	fd := &fakeData{err: repos.ErrNotFound}
	r := gin.New()
	r.POST("/delete", NewDataHandler(fd).DeleteTask)

	w := doJSON(t, r, http.MethodPost, "/delete", map[string]string{"id": "abc"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "abc", fd.deleted)
}

func TestCheckTasksReturnsDay(t *testing.T) {
	task := &types.Task{ID: uuid.New(), ActionItem: "Call", Sent: true}
	r := gin.New()
	r.GET("/cron", NewCronHandler(&fakeReminders{tasks: []*types.Task{task}}).CheckTasks)

	w := doJSON(t, r, http.MethodGet, "/cron", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tasks := decode(t, w)["tasks"].([]interface{})
	require.Len(t, tasks, 1)
	assert.Equal(t, "Call", tasks[0].(map[string]interface{})["action_item"])
}

func TestTranscribeAudioCollectsPrefixedFields(t *testing.T) {
	fm := &fakeMedia{}
	r := gin.New()
	r.POST("/audio", NewMediaHandler(fm).TranscribeAudio)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, field := range []string{"audio2", "audio1", "other"} {
		part, err := mw.CreateFormFile(field, field+".mp3")
		require.NoError(t, err)
		_, _ = part.Write([]byte("ID3"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/audio", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello world", decode(t, w)["transcription"])
	assert.Equal(t, []string{"audio1.mp3", "audio2.mp3"}, fm.names)
}
