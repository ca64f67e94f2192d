package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"focalai/internal/gateway/handler"
	artifactrepo "focalai/internal/gateway/repository/artifact"
	idearepo "focalai/internal/gateway/repository/idea"
	"focalai/internal/gateway/service/credits"
	"focalai/internal/gateway/service/refinement"
)

const (
	RefinementServiceName   = "focalai.v1.RefinementService"
	RefineProcedure         = "/" + RefinementServiceName + "/Refine"
	FeedbackProcedure       = "/" + RefinementServiceName + "/Feedback"
	refinementServicePrefix = "/" + RefinementServiceName + "/"
)

// RefinementHandler exposes the refinement service over Connect. Messages
// are google.protobuf.Struct so clients send plain JSON objects.
type RefinementHandler struct {
	svc *refinement.Service
}

func NewRefinementHandler(svc *refinement.Service) *RefinementHandler {
	return &RefinementHandler{svc: svc}
}

// Routes returns the service path prefix and its handler, in the shape of
// generated Connect constructors.
func (h *RefinementHandler) Routes(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(RefineProcedure, connect.NewUnaryHandler(RefineProcedure, h.Refine, opts...))
	mux.Handle(FeedbackProcedure, connect.NewUnaryHandler(FeedbackProcedure, h.Feedback, opts...))
	return refinementServicePrefix, mux
}

func (h *RefinementHandler) Refine(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	fields := req.Msg.GetFields()
	out, err := h.svc.Refine(ctx, refinement.RefineRequest{
		UserID: fields["user_id"].GetStringValue(),
		Idea:   fields["idea"].GetStringValue(),
		IdeaID: fields["idea_id"].GetStringValue(),
	})
	return respond(out, err)
}

func (h *RefinementHandler) Feedback(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	fields := req.Msg.GetFields()
	out, err := h.svc.Feedback(ctx, refinement.FeedbackRequest{
		UserID:   fields["user_id"].GetStringValue(),
		IdeaID:   fields["idea_id"].GetStringValue(),
		Feedback: fields["feedback"].GetStringValue(),
	})
	return respond(out, err)
}

func respond(out *refinement.Outcome, err error) (*connect.Response[structpb.Struct], error) {
	if err != nil {
		return nil, connect.NewError(codeFor(err), err)
	}
	msg, err := toStruct(handler.NewRefineResponse(out))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return structpb.NewStruct(m)
}

func codeFor(err error) connect.Code {
	switch {
	case errors.Is(err, refinement.ErrInvalidInput):
		return connect.CodeInvalidArgument
	case errors.Is(err, credits.ErrInsufficient):
		return connect.CodeResourceExhausted
	case errors.Is(err, refinement.ErrForbidden):
		return connect.CodePermissionDenied
	case errors.Is(err, idearepo.ErrNotFound), errors.Is(err, artifactrepo.ErrNotFound):
		return connect.CodeNotFound
	case errors.Is(err, refinement.ErrIdeaExists):
		return connect.CodeAlreadyExists
	case errors.Is(err, refinement.ErrBusy):
		return connect.CodeAborted
	default:
		return connect.CodeInternal
	}
}
