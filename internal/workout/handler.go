package workout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/harshssd/HyperFit-sub001/internal/auth"
	"github.com/harshssd/HyperFit-sub001/internal/telemetry/tracing"
	"github.com/harshssd/HyperFit-sub001/pkg"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("", handler.handleGetState).Methods("GET", "OPTIONS").Name("get-state")
	router.HandleFunc("/stream", handler.handleStream).Methods("GET").Name("stream-state")
	router.HandleFunc("/classify", handler.handleClassify).Methods("GET", "OPTIONS").Name("classify")

	router.HandleFunc("/checkin", handler.handleToggleCheckIn).Methods("POST", "OPTIONS").Name("toggle-checkin")

	router.HandleFunc("/exercise", handler.handleAddExercise).Methods("POST", "OPTIONS").Name("add-exercise")
	router.HandleFunc("/exercise/{id}/name", handler.handleEditExerciseName).Methods("PUT", "OPTIONS").Name("edit-exercise-name")
	router.HandleFunc("/exercise/{id}", handler.handleDeleteExercise).Methods("DELETE", "OPTIONS").Name("delete-exercise")
	router.HandleFunc("/exercise/{id}/move", handler.handleMoveExercise).Methods("POST", "OPTIONS").Name("move-exercise")
	router.HandleFunc("/exercise/{id}/set", handler.handleAddSet).Methods("POST", "OPTIONS").Name("add-set")
	router.HandleFunc("/exercise/{id}/set/{index}", handler.handleUpdateSet).Methods("PUT", "OPTIONS").Name("update-set")

	router.HandleFunc("/session/start", handler.handleStartSession).Methods("POST", "OPTIONS").Name("start-session")
	router.HandleFunc("/session/finish", handler.handleFinishWorkout).Methods("POST", "OPTIONS").Name("finish-workout")
	router.HandleFunc("/session/abort", handler.handleAbortSession).Methods("POST", "OPTIONS").Name("abort-session")
	router.HandleFunc("/session/back", handler.handleBackToOverview).Methods("POST", "OPTIONS").Name("back-to-overview")
	router.HandleFunc("/session/undo-finish", handler.handleUndoFinish).Methods("POST", "OPTIONS").Name("undo-finish")
	router.HandleFunc("/session/new", handler.handleStartNewSession).Methods("POST", "OPTIONS").Name("start-new-session")

	router.HandleFunc("/cursor", handler.handleMoveCursor).Methods("POST", "OPTIONS").Name("move-cursor")
	router.HandleFunc("/viewmode", handler.handleSetViewMode).Methods("POST", "OPTIONS").Name("set-view-mode")

	router.HandleFunc("/template/apply", handler.handleApplyTemplate).Methods("POST", "OPTIONS").Name("apply-template")

	router.HandleFunc("/steps", handler.handleAddSteps).Methods("POST", "OPTIONS").Name("add-steps")
	router.HandleFunc("/pushups", handler.handleAddPushups).Methods("POST", "OPTIONS").Name("add-pushups")
}

// day comes from the client (its local calendar day); absent it falls
// back to the server's UTC day.
func dayParam(r *http.Request) string {
	if day := r.URL.Query().Get("day"); day != "" {
		return day
	}
	return pkg.DayKey(time.Now().UTC())
}

func userID(r *http.Request) (string, bool) {
	return auth.UserIDFromContext(r.Context())
}

func (handler *Handler) writeState(w http.ResponseWriter, ud UserData, day string) {
	handler.writeDayState(w, handler.service.dayState(ud, day))
}

func (handler *Handler) writeDayState(w http.ResponseWriter, state DayState) {
	stateJson, err := json.Marshal(state)
	if err != nil {
		log.Errorf("marshal day state: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, stateJson, http.StatusOK)
}

func (handler *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutHandler.getState")
	defer span.End()

	uid, ok := userID(r)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	state, err := handler.service.State(ctx, uid, dayParam(r))
	if err != nil {
		log.Errorf("get state for %s: %s", uid, err)
		http.Error(w, "failed to get state", http.StatusInternalServerError)
		return
	}

	handler.writeDayState(w, state)
}

// handleStream pushes whole-document replacements to the client as
// server-sent events, one event per write from any device.
func (handler *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	updates, err := handler.service.Watch(r.Context(), uid)
	if err != nil {
		log.Errorf("watch state for %s: %s", uid, err)
		http.Error(w, "failed to open stream", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	day := dayParam(r)
	for {
		select {
		case <-r.Context().Done():
			return
		case ud, open := <-updates:
			if !open {
				return
			}
			stateJson, err := json.Marshal(handler.service.dayState(ud, day))
			if err != nil {
				log.Errorf("marshal state update for %s: %s", uid, err)
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", stateJson); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (handler *Handler) handleClassify(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	configJson, err := json.Marshal(Classify(name))
	if err != nil {
		log.Errorf("marshal exercise config: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, configJson, http.StatusOK)
}

func (handler *Handler) handleToggleCheckIn(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutHandler.toggleCheckIn")
	defer span.End()

	uid, ok := userID(r)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	day := dayParam(r)
	ud, err := handler.service.ToggleCheckIn(ctx, uid, day)
	if err != nil {
		log.Errorf("toggle check-in for %s: %s", uid, err)
		http.Error(w, "failed to toggle check-in", http.StatusInternalServerError)
		return
	}

	handler.writeState(w, ud, day)
}

type addExerciseRequest struct {
	Name     string `json:"name"`
	Position string `json:"position"`
}

func (handler *Handler) handleAddExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutHandler.addExercise")
	defer span.End()

	uid, ok := userID(r)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req addExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("add exercise, unmarshal json params: %s", err)
		http.Error(w, "add exercise failed", http.StatusBadRequest)
		return
	}
	if req.Position == "" {
		req.Position = string(PositionBottom)
	}

	day := dayParam(r)
	ud, err := handler.service.AddExercise(ctx, uid, day, req.Name, Position(req.Position))
	if err != nil {
		if errors.Is(err, ErrBlankExerciseName) || errors.Is(err, ErrUnknownPosition) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Errorf("add exercise for %s: %s", uid, err)
		http.Error(w, "add exercise failed", http.StatusInternalServerError)
		return
	}

	handler.writeState(w, ud, day)
}

type editNameRequest struct {
	Name string `json:"name"`
}

func (handler *Handler) handleEditExerciseName(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutHandler.editExerciseName")
	defer span.End()

	uid, ok := userID(r)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req editNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("edit exercise name, unmarshal json params: %s", err)
		http.Error(w, "edit exercise name failed", http.StatusBadRequest)
		return
	}

	day := dayParam(r)
	ud, err := handler.service.EditExerciseName(ctx, uid, day, mux.Vars(r)["id"], req.Name)
	if err != nil {
		log.Errorf("edit exercise name for %s: %s", uid, err)
		http.Error(w, "edit exercise name failed", http.StatusInternalServerError)
		return
	}

	handler.writeState(w, ud, day)
}

func (handler *Handler) handleDeleteExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutHandler.deleteExercise")
	defer span.End()

	uid, ok := userID(r)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	day := dayParam(r)
	ud, err := handler.service.DeleteExercise(ctx, uid, day, mux.Vars(r)["id"])
	if err != nil {
		log.Errorf("delete exercise for %s: %s", uid, err)
		http.Error(w, "delete exercise failed", http.StatusInternalServerError)
		return
	}

	handler.writeState(w, ud, day)
}

type moveExerciseRequest struct {
	Direction string `json:"direction"`
}

func (handler *Handler) handleMoveExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutHandler.moveExercise")
	defer span.End()

	uid, ok := userID(r)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req moveExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("move exercise, unmarshal json params: %s", err)
		http.Error(w, "move exercise failed", http.StatusBadRequest)
		return
	}

	day := dayParam(r)
	ud, err := handler.service.MoveExercise(ctx, uid, day, mux.Vars(r)["id"], MoveDirection(req.Direction))
	if err != nil {
		if errors.Is(err, ErrUnknownMoveDirection) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Errorf("move exercise for %s: %s", uid, err)
		http.Error(w, "move exercise failed", http.StatusInternalServerError)
		return
	}

	handler.writeState(w, ud, day)
}

func (handler *Handler) handleAddSet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutHandler.addSet")
	defer span.End()

	uid, ok := userID(r)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	day := dayParam(r)
	ud, err := handler.service.AddSet(ctx, uid, day, mux.Vars(r)["id"])
	if err != nil {
		log.Errorf("add set for %s: %s", uid, err)
		http.Error(w, "add set failed", http.StatusInternalServerError)
		return
	}

	handler.writeState(w, ud, day)
}

type updateSetRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (handler *Handler) handleUpdateSet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutHandler.updateSet")
	defer span.End()

	uid, ok := userID(r)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	setIndex, err := strconv.Atoi(vars["index"])
	if err != nil {
		http.Error(w, "invalid set index", http.StatusBadRequest)
		return
	}

	var req updateSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("update set, unmarshal json params: %s", err)
		http.Error(w, "update set failed", http.StatusBadRequest)
		return
	}

	day := dayParam(r)
	ud, err := handler.service.UpdateSet(ctx, uid, day, vars["id"], setIndex, SetField(req.Field), req.Value)
	if err != nil {
		if errors.Is(err, ErrSetIndexOutOfRange) || errors.Is(err, ErrUnknownSetField) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Errorf("update set for %s: %s", uid, err)
		http.Error(w, "update set failed", http.StatusInternalServerError)
		return
	}

	handler.writeState(w, ud, day)
}

// sessionCommand covers the transitions that take no request body.
func (handler *Handler) sessionCommand(
	spanName string,
	command func(ctx context.Context, userID, day string) (UserData, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracing.GlobalTracer.Start(r.Context(), spanName)
		defer span.End()

		uid, ok := userID(r)
		if !ok {
			http.Error(w, "no can do", http.StatusUnauthorized)
			return
		}

		day := dayParam(r)
		ud, err := command(ctx, uid, day)
		if err != nil {
			if errors.Is(err, ErrSessionNeedsExercise) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			log.Errorf("session command %s for %s: %s", spanName, uid, err)
			http.Error(w, "session command failed", http.StatusInternalServerError)
			return
		}

		handler.writeState(w, ud, day)
	}
}

func (handler *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	handler.sessionCommand("workoutHandler.startSession", handler.service.StartSession)(w, r)
}

func (handler *Handler) handleFinishWorkout(w http.ResponseWriter, r *http.Request) {
	handler.sessionCommand("workoutHandler.finishWorkout", handler.service.FinishWorkout)(w, r)
}

type abortSessionRequest struct {
	Confirm bool `json:"confirm"`
}

// Aborting discards all non-archived exercises, so the client has to
// say it asked the user first.
func (handler *Handler) handleAbortSession(w http.ResponseWriter, r *http.Request) {
	var req abortSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("abort session, unmarshal json params: %s", err)
		http.Error(w, "abort session failed", http.StatusBadRequest)
		return
	}
	if !req.Confirm {
		http.Error(w, "abort needs confirmation", http.StatusBadRequest)
		return
	}

	handler.sessionCommand("workoutHandler.abortSession", handler.service.AbortSession)(w, r)
}

func (handler *Handler) handleBackToOverview(w http.ResponseWriter, r *http.Request) {
	handler.sessionCommand("workoutHandler.backToOverview", handler.service.BackToOverview)(w, r)
}

func (handler *Handler) handleUndoFinish(w http.ResponseWriter, r *http.Request) {
	handler.sessionCommand("workoutHandler.undoFinish", handler.service.UndoFinish)(w, r)
}

func (handler *Handler) handleStartNewSession(w http.ResponseWriter, r *http.Request) {
	handler.sessionCommand("workoutHandler.startNewSession", handler.service.StartNewSession)(w, r)
}

type moveCursorRequest struct {
	Delta int `json:"delta"`
}

func (handler *Handler) handleMoveCursor(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutHandler.moveCursor")
	defer span.End()

	uid, ok := userID(r)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req moveCursorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("move cursor, unmarshal json params: %s", err)
		http.Error(w, "move cursor failed", http.StatusBadRequest)
		return
	}

	day := dayParam(r)
	ud, err := handler.service.MoveCursor(ctx, uid, day, req.Delta)
	if err != nil {
		log.Errorf("move cursor for %s: %s", uid, err)
		http.Error(w, "move cursor failed", http.StatusInternalServerError)
		return
	}

	handler.writeState(w, ud, day)
}

type setViewModeRequest struct {
	Mode string `json:"mode"`
}

func (handler *Handler) handleSetViewMode(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutHandler.setViewMode")
	defer span.End()

	uid, ok := userID(r)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req setViewModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("set view mode, unmarshal json params: %s", err)
		http.Error(w, "set view mode failed", http.StatusBadRequest)
		return
	}

	day := dayParam(r)
	ud, err := handler.service.SetViewMode(ctx, uid, day, req.Mode)
	if err != nil {
		log.Errorf("set view mode for %s: %s", uid, err)
		http.Error(w, "set view mode failed", http.StatusInternalServerError)
		return
	}

	handler.writeState(w, ud, day)
}

type applyTemplateRequest struct {
	Exercises []string `json:"exercises"`
}

func (handler *Handler) handleApplyTemplate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutHandler.applyTemplate")
	defer span.End()

	uid, ok := userID(r)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req applyTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("apply template, unmarshal json params: %s", err)
		http.Error(w, "apply template failed", http.StatusBadRequest)
		return
	}
	if len(req.Exercises) == 0 {
		http.Error(w, "template has no exercises", http.StatusBadRequest)
		return
	}

	day := dayParam(r)
	ud, err := handler.service.ApplyTemplate(ctx, uid, day, req.Exercises)
	if err != nil {
		log.Errorf("apply template for %s: %s", uid, err)
		http.Error(w, "apply template failed", http.StatusInternalServerError)
		return
	}

	handler.writeState(w, ud, day)
}

type addStepsRequest struct {
	Steps int `json:"steps"`
}

func (handler *Handler) handleAddSteps(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutHandler.addSteps")
	defer span.End()

	uid, ok := userID(r)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req addStepsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("add steps, unmarshal json params: %s", err)
		http.Error(w, "add steps failed", http.StatusBadRequest)
		return
	}

	day := dayParam(r)
	ud, err := handler.service.AddSteps(ctx, uid, req.Steps)
	if err != nil {
		log.Errorf("add steps for %s: %s", uid, err)
		http.Error(w, "add steps failed", http.StatusInternalServerError)
		return
	}

	handler.writeState(w, ud, day)
}

type addPushupsRequest struct {
	Count int `json:"count"`
}

func (handler *Handler) handleAddPushups(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutHandler.addPushups")
	defer span.End()

	uid, ok := userID(r)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req addPushupsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("add pushups, unmarshal json params: %s", err)
		http.Error(w, "add pushups failed", http.StatusBadRequest)
		return
	}

	day := dayParam(r)
	ud, err := handler.service.AddPushups(ctx, uid, req.Count)
	if err != nil {
		log.Errorf("add pushups for %s: %s", uid, err)
		http.Error(w, "add pushups failed", http.StatusInternalServerError)
		return
	}

	handler.writeState(w, ud, day)
}
