package stream

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"

	flowhandler "github.com/zhouzirui/mood-fortune/backend/internal/handler/flow"
	"github.com/zhouzirui/mood-fortune/backend/internal/model/content"
	flowmodel "github.com/zhouzirui/mood-fortune/backend/internal/model/flow"
	"github.com/zhouzirui/mood-fortune/backend/internal/service/ai"
	"github.com/zhouzirui/mood-fortune/backend/pkg/utils"
)

// ProfileReader 读取 profile 及其选中消息的完整记录
type ProfileReader interface {
	Message(ctx context.Context, profileID string) (flowmodel.Profile, *content.Message, error)
}

// Narrator 生成感悟流
type Narrator interface {
	Stream(ctx context.Context, in ai.ReflectionInput) (*schema.StreamReader[*schema.Message], ai.Source, error)
}

// Handler manages streaming reflections via Server-Sent Events
type Handler struct {
	narrator Narrator
	profiles ProfileReader
}

// New creates a new stream handler
func New(narrator Narrator, profiles ProfileReader) *Handler {
	return &Handler{narrator: narrator, profiles: profiles}
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event     string    `json:"event"`
	Content   string    `json:"content,omitempty"`
	ProfileID string    `json:"profileId,omitempty"`
	Source    ai.Source `json:"source,omitempty"`
	Finished  bool      `json:"finished,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// HandleReflection streams a reflection on the profile's selected message.
func (h *Handler) HandleReflection(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")

	profile, full, err := h.profiles.Message(r.Context(), profileID)
	if err != nil {
		flowhandler.RespondFlowError(w, err)
		return
	}
	if profile.Selected == nil {
		utils.RespondError(w, http.StatusConflict, "no message selected yet")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	in := ai.ReflectionInput{
		ProfileID: profile.ID,
		Library:   profile.Library,
		Mood:      string(profile.Mood),
		Context:   string(profile.Context),
		Selected:  *profile.Selected,
	}
	if full != nil {
		in.ActionType = string(full.ActionType)
	}

	stream, source, err := h.narrator.Stream(r.Context(), in)
	if err != nil {
		log.Printf("[stream] reflection failed for profile=%s: %v", profileID, err)
		utils.RespondError(w, http.StatusInternalServerError, "reflection failed")
		return
	}
	defer stream.Close()

	utils.SetupSSEHeaders(w)
	utils.SendSSEChunk(w, flusher, StreamResponse{Event: "start", ProfileID: profileID, Source: source})

	response, err := h.relay(w, flusher, profileID, stream)
	if err != nil {
		utils.SendSSEChunk(w, flusher, StreamResponse{Event: "error", ProfileID: profileID, Error: err.Error()})
		return
	}

	utils.SendSSEChunk(w, flusher, StreamResponse{Event: "message", ProfileID: profileID, Content: response.Content})
	utils.SendSSEChunk(w, flusher, StreamResponse{Event: "end", ProfileID: profileID, Finished: true})
	log.Printf("[stream] completed reflection for profile=%s, source=%s", profileID, source)
}

func (h *Handler) relay(w http.ResponseWriter, flusher http.Flusher, profileID string, stream *schema.StreamReader[*schema.Message]) (*schema.Message, error) {
	chunks := make([]*schema.Message, 0, 8)

	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return nil, recvErr
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			utils.SendSSEChunk(w, flusher, StreamResponse{
				Event:     "delta",
				ProfileID: profileID,
				Content:   chunk.Content,
			})
		}
	}

	if len(chunks) == 0 {
		return nil, errors.New("empty reflection")
	}
	return schema.ConcatMessages(chunks)
}
