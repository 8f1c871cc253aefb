package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"liveness_survey/internal/capture"
	"liveness_survey/internal/client"
	"liveness_survey/internal/config"
	"liveness_survey/internal/detector"
	"liveness_survey/internal/domain"
	"liveness_survey/internal/recorder"
	"liveness_survey/internal/session"
	"liveness_survey/internal/visibility"
	"liveness_survey/pkg/logger"
)

func main() {
	surveyID := flag.Int64("survey", 0, "survey ID to run")
	flag.Parse()

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Log.Level)

	if *surveyID == 0 {
		appLogger.Fatal("survey ID is required (-survey)")
	}

	backend := client.NewSubmissionClient(cfg.Agent.APIBaseURL, cfg.Agent.RequestTimeout, cfg.Agent.UploadTimeout)
	camera := capture.NewCamera(cfg.Camera, appLogger)
	tracker := visibility.NewTracker()

	// Рекордер всегда создается на живом потоке камеры
	newRecorder := func() (session.Recorder, error) {
		return recorder.Start(camera.Stream(), cfg.Camera.Width, cfg.Camera.Height, appLogger)
	}

	// Цикл детектора публикует наблюдения в контроллер; контроллер
	// создается ниже, поэтому замыкание держит указатель
	var ctrl *session.Controller
	evaluator := detector.NewPigoEvaluator(cfg.Detector.CascadePath)
	loop := detector.NewLoop(evaluator, camera, cfg.Detector.FrameInterval, func(obs domain.FaceObservation) {
		if ctrl != nil {
			ctrl.HandleObservation(obs)
		}
	}, appLogger)

	ctrl = session.NewController(*surveyID, backend, camera, newRecorder, loop, tracker, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Teardown по сигналу
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		appLogger.Info("shutting down session...")
		cancel()
		ctrl.Teardown()
		os.Exit(1)
	}()

	appLogger.Info("initializing session", "survey_id", *surveyID)
	if err := ctrl.Init(ctx); err != nil {
		st := ctrl.Status()
		appLogger.Error("session failed to start", "error", st.FatalMessage)
		ctrl.Teardown()
		os.Exit(1)
	}

	runPrompt(ctx, ctrl, appLogger)

	ctrl.Teardown()
}

// runPrompt гоняет терминальный цикл вопрос-ответ до завершения сессии
func runPrompt(ctx context.Context, ctrl *session.Controller, log logger.Logger) {
	reader := bufio.NewReader(os.Stdin)

	for {
		st := ctrl.Status()

		switch st.State {
		case session.StateCompleted:
			fmt.Printf("\nSurvey complete. Overall score: %d\n", st.OverallScore)
			if url, ok := ctrl.ExportURL(); ok {
				fmt.Printf("Export: %s\n", url)
			}
			return
		case session.StateFatal:
			fmt.Printf("\nSession failed: %s\n", st.FatalMessage)
			return
		}

		if st.Question == nil {
			continue
		}

		fmt.Printf("\nQuestion %d/5: %s\n", st.Step+1, st.Question.QuestionText)
		fmt.Printf("[%s]\n", st.FaceMessage)
		if st.LastError != "" {
			fmt.Printf("Previous attempt failed: %s\n", st.LastError)
		}
		fmt.Print("Answer (y/n, or q to quit): ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}

		var answer string
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			answer = "Yes"
		case "n", "no":
			answer = "No"
		case "q", "quit":
			return
		default:
			continue
		}

		if !ctrl.CanAnswer() {
			fmt.Println("Face gate is closed, adjust your position and try again.")
			continue
		}

		if err := ctrl.Answer(ctx, answer); err != nil {
			switch err {
			case session.ErrBusy, session.ErrGateDenied:
				fmt.Printf("Answer not accepted: %v\n", err)
			case session.ErrNotAccepting:
				// Терминальное состояние обработает следующая итерация
			default:
				log.Warn("answer transaction failed", "error", err)
			}
		}
	}
}
