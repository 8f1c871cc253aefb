// Package session drives the question-by-question survey flow: it owns the
// submission identity, the step index and the single active segment recorder,
// and sequences gate evaluation, the capture-upload-save transaction and
// recovery after partial failure.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"liveness_survey/internal/client"
	"liveness_survey/internal/domain"
	"liveness_survey/internal/visibility"
	"liveness_survey/pkg/logger"
)

type State string

const (
	StateInitializing   State = "initializing"
	StateReady          State = "ready"
	StateAwaitingAnswer State = "awaiting_answer"
	StateSubmitting     State = "submitting"
	StateCompleted      State = "completed"
	StateFatal          State = "fatal"
)

var (
	// ErrBusy - транзакция уже в полете; повторный вызов игнорируется
	ErrBusy = errors.New("answer transaction already in flight")
	// ErrGateDenied - гейт не разрешает ответ на момент старта транзакции
	ErrGateDenied = errors.New("answer not permitted: face gate is closed")
	// ErrNotAccepting - сессия не в состоянии приема ответов
	ErrNotAccepting = errors.New("session is not accepting answers")
)

// Backend - API бэкенда опросов (реализуется client.SubmissionClient)
type Backend interface {
	GetSurvey(ctx context.Context, surveyID int64) (*domain.Survey, error)
	StartSubmission(ctx context.Context, surveyID int64) (int64, error)
	UploadMedia(ctx context.Context, submissionID int64, kind, filename string, blob domain.Blob) (string, error)
	SaveAnswer(ctx context.Context, submissionID int64, answer client.SaveAnswerRequest) error
	CompleteSubmission(ctx context.Context, submissionID int64) (*client.CompleteSubmissionResponse, error)
	ExportURL(submissionID int64) string
}

// Camera - владелец потока камеры (реализуется capture.Camera)
type Camera interface {
	Acquire(ctx context.Context) error
	SnapshotPNG() (domain.Blob, error)
	Close()
}

// Recorder - живая запись одного сегмента (реализуется recorder.Segment)
type Recorder interface {
	Stop(ctx context.Context) (domain.Blob, error)
	Discard()
}

// RecorderFactory создает новый рекордер на живом потоке камеры
type RecorderFactory func() (Recorder, error)

// ObservationTask - кооперативная задача оценки кадров (реализуется detector.Loop)
type ObservationTask interface {
	Start(ctx context.Context) error
	Cancel()
}

type Controller struct {
	surveyID    int64
	backend     Backend
	camera      Camera
	newRecorder RecorderFactory
	task        ObservationTask
	tracker     *visibility.Tracker
	log         logger.Logger

	mu           sync.Mutex
	state        State
	survey       *domain.Survey
	questions    []domain.Question
	submissionID int64
	step         int
	busy         bool
	recorder     Recorder
	overallScore int
	lastErr      string
	fatalMsg     string
	closed       bool
}

func NewController(
	surveyID int64,
	backend Backend,
	camera Camera,
	newRecorder RecorderFactory,
	task ObservationTask,
	tracker *visibility.Tracker,
	log logger.Logger,
) *Controller {
	return &Controller{
		surveyID:    surveyID,
		backend:     backend,
		camera:      camera,
		newRecorder: newRecorder,
		task:        task,
		tracker:     tracker,
		log:         log,
		state:       StateInitializing,
	}
}

// Init выполняет стартовую последовательность: загрузка и валидация опроса,
// старт сабмишена, параллельно - захват камеры и инициализация детектора.
// Сессия готова, когда доступны опрос, сабмишен и поток; затем вход в шаг 0.
func (c *Controller) Init(ctx context.Context) error {
	type result struct {
		name string
		err  error
	}
	results := make(chan result, 3)

	go func() {
		results <- result{"survey", c.initSubmission(ctx)}
	}()
	go func() {
		if err := c.camera.Acquire(ctx); err != nil {
			// Статус лица переводится в no_camera вместе с фатальным сообщением
			c.tracker.Observe(domain.ObservationNoCamera())
			results <- result{"camera", errors.New(
				"Camera permission denied or camera not available. Please allow camera access and reload.")}
			return
		}
		results <- result{"camera", nil}
	}()
	go func() {
		if err := c.task.Start(ctx); err != nil {
			results <- result{"detector", fmt.Errorf("Failed to initialize face detector: %v", err)}
			return
		}
		results <- result{"detector", nil}
	}()

	for i := 0; i < 3; i++ {
		r := <-results
		if r.err != nil {
			c.fail(r.err.Error())
			return r.err
		}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("session torn down during initialization")
	}
	c.state = StateReady
	c.mu.Unlock()

	c.log.Info("session: ready",
		"survey_id", c.surveyID,
		"submission_id", c.SubmissionID())

	// Вход в шаг 0: свежий рекордер на живом потоке
	c.enterStep()
	return nil
}

// initSubmission загружает опрос и стартует сабмишен. Невалидный опрос
// фатален и сабмишен для него не создается.
func (c *Controller) initSubmission(ctx context.Context) error {
	survey, err := c.backend.GetSurvey(ctx, c.surveyID)
	if err != nil {
		return err
	}
	if !survey.IsActive {
		return errors.New("This survey is not published/active.")
	}
	if len(survey.Questions) != domain.RequiredQuestionCount {
		return fmt.Errorf("Survey must have exactly %d questions.", domain.RequiredQuestionCount)
	}

	submissionID, err := c.backend.StartSubmission(ctx, c.surveyID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.survey = survey
	c.questions = survey.SortedQuestions()
	c.submissionID = submissionID
	c.mu.Unlock()
	return nil
}

// HandleObservation - единственный потребитель наблюдений цикла детектора
func (c *Controller) HandleObservation(obs domain.FaceObservation) {
	c.mu.Lock()
	terminal := c.state == StateFatal || c.state == StateCompleted || c.closed
	c.mu.Unlock()
	if terminal {
		return
	}
	c.tracker.Observe(obs)
}

// CanAnswer - сигнал для UI: гейт открыт и транзакция не в полете
func (c *Controller) CanAnswer() bool {
	c.mu.Lock()
	ok := !c.closed && c.state == StateAwaitingAnswer && !c.busy && c.submissionID != 0
	c.mu.Unlock()
	return ok && c.tracker.Permitted()
}

// Answer выполняет транзакцию ответа. Гейт перепроверяется здесь, в начале
// транзакции, а не только при отрисовке: это закрывает гонку между
// показанной кнопкой и мерцанием детектора в момент клика.
func (c *Controller) Answer(ctx context.Context, answer string) error {
	if answer != domain.AnswerYes && answer != domain.AnswerNo {
		return fmt.Errorf("invalid answer %q", answer)
	}

	c.mu.Lock()
	// Транзакция в полете распознается до проверки состояния: на время
	// сабмита state уходит в Submitting и иначе вернулся бы ErrNotAccepting
	if c.busy || c.state == StateSubmitting {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.closed || c.state != StateAwaitingAnswer {
		c.mu.Unlock()
		return ErrNotAccepting
	}

	gate := c.tracker.Gate()
	if !gate.Permitted {
		c.mu.Unlock()
		return ErrGateDenied
	}

	c.busy = true
	c.state = StateSubmitting
	c.lastErr = ""
	rec := c.recorder
	step := c.step
	question := c.questions[step]
	submissionID := c.submissionID
	c.mu.Unlock()

	err := c.runTransaction(ctx, rec, step, question, submissionID, answer, gate)
	if err != nil {
		// Шаг не продвигается; записи ответа нет; пользователь повторяет
		// тот же вопрос с новым захватом медиа
		c.log.Error("session: answer transaction failed", "step", step, "error", err)
		c.mu.Lock()
		c.lastErr = err.Error()
		c.busy = false
		c.state = StateAwaitingAnswer
		c.mu.Unlock()
		c.enterStep()
		return err
	}

	c.mu.Lock()
	c.busy = false
	if c.step == len(c.questions)-1 {
		c.state = StateCompleted
		c.recorder = nil
		c.mu.Unlock()
		return nil
	}
	c.step++
	c.state = StateAwaitingAnswer
	c.mu.Unlock()
	c.enterStep()
	return nil
}

// runTransaction - атомарная последовательность: стоп рекордера + стоп-кадр
// (параллельно), загрузка изображения, загрузка сегмента, сохранение ответа,
// завершение на последнем шаге. Частичных коммитов нет: любой сбой до
// сохранения ответа оставляет вопрос без записи.
func (c *Controller) runTransaction(
	ctx context.Context,
	rec Recorder,
	step int,
	question domain.Question,
	submissionID int64,
	answer string,
	gate visibility.GateState,
) error {
	if rec == nil {
		return errors.New("Recorder not initialized. Please reload the page.")
	}

	type stopResult struct {
		blob domain.Blob
		err  error
	}
	stopCh := make(chan stopResult, 1)
	go func() {
		blob, err := rec.Stop(ctx)
		stopCh <- stopResult{blob, err}
	}()

	imageBlob, imageErr := c.camera.SnapshotPNG()
	stop := <-stopCh

	if stop.err != nil {
		return fmt.Errorf("failed to stop recorder: %w", stop.err)
	}
	if imageErr != nil {
		return imageErr
	}

	qNum := step + 1

	imagePath, err := c.backend.UploadMedia(ctx, submissionID, domain.MediaKindImage,
		fmt.Sprintf("q%d_face.png", qNum), imageBlob)
	if err != nil {
		return err
	}

	if _, err := c.backend.UploadMedia(ctx, submissionID, domain.MediaKindVideo,
		fmt.Sprintf("q%d_segment.webm", qNum), stop.blob); err != nil {
		return err
	}

	// face_detected всегда true: до сюда не добраться с закрытым гейтом
	if err := c.backend.SaveAnswer(ctx, submissionID, client.SaveAnswerRequest{
		QuestionID:    question.ID,
		Answer:        answer,
		FaceDetected:  true,
		FaceScore:     gate.ScoreToUse,
		FaceImagePath: imagePath,
	}); err != nil {
		return err
	}

	if step == domain.RequiredQuestionCount-1 {
		completed, err := c.backend.CompleteSubmission(ctx, submissionID)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.overallScore = completed.OverallScore
		c.mu.Unlock()
	}

	return nil
}

// enterStep - единственная точка рестарта рекордера: вход в шаг (включая
// нулевой) и восстановление после сбоя транзакции проходят через нее.
func (c *Controller) enterStep() {
	c.mu.Lock()
	if c.closed || c.state == StateFatal || c.state == StateCompleted {
		c.mu.Unlock()
		return
	}
	old := c.recorder
	c.recorder = nil
	c.mu.Unlock()

	if old != nil {
		old.Discard()
	}

	rec, err := c.newRecorder()
	if err != nil {
		c.log.Error("session: failed to start recorder", "error", err)
		c.mu.Lock()
		c.lastErr = fmt.Sprintf("failed to start recorder: %v", err)
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		rec.Discard()
		return
	}
	c.recorder = rec
	if c.state == StateReady {
		c.state = StateAwaitingAnswer
	}
	c.mu.Unlock()
}

func (c *Controller) fail(msg string) {
	c.mu.Lock()
	c.state = StateFatal
	c.fatalMsg = msg
	c.mu.Unlock()
}

// Teardown синхронно останавливает цикл детектора и треки камеры и
// бросает активный рекордер. Результаты брошенных асинхронных операций
// отбрасываются проверкой closed перед применением.
func (c *Controller) Teardown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	rec := c.recorder
	c.recorder = nil
	c.mu.Unlock()

	c.task.Cancel()
	if rec != nil {
		rec.Discard()
	}
	c.camera.Close()
}

// ExportURL доступен только после завершения сессии
func (c *Controller) ExportURL() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateCompleted {
		return "", false
	}
	return c.backend.ExportURL(c.submissionID), true
}

func (c *Controller) SubmissionID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submissionID
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status - снимок сессии для отображения
type Status struct {
	State        State
	SurveyTitle  string
	Step         int
	Question     *domain.Question
	FaceMessage  string
	Permitted    bool
	Busy         bool
	LastError    string
	FatalMessage string
	OverallScore int
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	st := Status{
		State:        c.state,
		Step:         c.step,
		Busy:         c.busy,
		LastError:    c.lastErr,
		FatalMessage: c.fatalMsg,
		OverallScore: c.overallScore,
	}
	if c.survey != nil {
		st.SurveyTitle = c.survey.Title
	}
	if c.step < len(c.questions) {
		q := c.questions[c.step]
		st.Question = &q
	}
	c.mu.Unlock()

	st.FaceMessage = c.tracker.Latest().Message()
	st.Permitted = c.tracker.Permitted()
	return st
}
