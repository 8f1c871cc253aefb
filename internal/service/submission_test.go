package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"liveness_survey/internal/domain"
	apperrors "liveness_survey/pkg/errors"
	"liveness_survey/pkg/logger"
)

type fakeSubmissionRepo struct {
	submissions map[int64]*domain.Submission
	answers     map[int64][]domain.Answer
	media       map[int64][]domain.MediaFile
	nextID      int64
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{
		submissions: make(map[int64]*domain.Submission),
		answers:     make(map[int64][]domain.Answer),
		media:       make(map[int64][]domain.MediaFile),
		nextID:      1,
	}
}

func (r *fakeSubmissionRepo) Create(ctx context.Context, sub *domain.Submission) error {
	sub.ID = r.nextID
	sub.StartedAt = time.Now()
	r.nextID++
	cp := *sub
	r.submissions[sub.ID] = &cp
	return nil
}

func (r *fakeSubmissionRepo) GetByID(ctx context.Context, id int64) (*domain.Submission, error) {
	s, ok := r.submissions[id]
	if !ok {
		return nil, apperrors.ErrSubmissionNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSubmissionRepo) SaveAnswer(ctx context.Context, answer *domain.Answer) error {
	answer.ID = int64(len(r.answers[answer.SubmissionID]) + 1)
	answer.CreatedAt = time.Now()
	r.answers[answer.SubmissionID] = append(r.answers[answer.SubmissionID], *answer)
	return nil
}

func (r *fakeSubmissionRepo) ListAnswers(ctx context.Context, submissionID int64) ([]domain.Answer, error) {
	return r.answers[submissionID], nil
}

func (r *fakeSubmissionRepo) AddMediaFile(ctx context.Context, file *domain.MediaFile) error {
	r.media[file.SubmissionID] = append(r.media[file.SubmissionID], *file)
	return nil
}

func (r *fakeSubmissionRepo) ListMediaFiles(ctx context.Context, submissionID int64) ([]domain.MediaFile, error) {
	return r.media[submissionID], nil
}

func (r *fakeSubmissionRepo) Complete(ctx context.Context, submissionID int64, completedAt time.Time, overallScore int) error {
	s, ok := r.submissions[submissionID]
	if !ok {
		return apperrors.ErrSubmissionNotFound
	}
	s.CompletedAt = &completedAt
	s.OverallScore = &overallScore
	return nil
}

func newTestSubmissionService(t *testing.T) (SubmissionService, *fakeSurveyRepo, *fakeSubmissionRepo) {
	t.Helper()
	surveyRepo := newFakeSurveyRepo()
	subRepo := newFakeSubmissionRepo()
	store := NewMediaStore(t.TempDir())
	log := logger.New("error")
	svc := NewSubmissionService(surveyRepo, subRepo, store, NewGeoLookup("none", log), NewMonitorHub(log), log)
	return svc, surveyRepo, subRepo
}

func activeSurvey(t *testing.T, repo *fakeSurveyRepo) *domain.Survey {
	t.Helper()
	s, _ := repo.Create(context.Background(), "s")
	for i := 1; i <= domain.RequiredQuestionCount; i++ {
		if _, err := repo.AddQuestion(context.Background(), s.ID, "q", i); err != nil {
			t.Fatalf("AddQuestion: %v", err)
		}
	}
	if err := repo.SetActive(context.Background(), s.ID, true); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	return s
}

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func TestStartRecordsClientEnvironment(t *testing.T) {
	svc, surveyRepo, _ := newTestSubmissionService(t)
	survey := activeSurvey(t, surveyRepo)

	sub, err := svc.Start(context.Background(), survey.ID, "203.0.113.7", chromeUA)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sub.ID == 0 {
		t.Fatal("submission ID must be assigned")
	}
	if sub.IPAddress == nil || *sub.IPAddress != "203.0.113.7" {
		t.Fatalf("ip = %v, want 203.0.113.7", sub.IPAddress)
	}
	if sub.Device == nil || *sub.Device != "PC" {
		t.Fatalf("device = %v, want PC", sub.Device)
	}
	if sub.Browser == nil || *sub.Browser != "Chrome" {
		t.Fatalf("browser = %v, want Chrome", sub.Browser)
	}
	if sub.OS == nil || *sub.OS == "" {
		t.Fatal("os must be parsed from user agent")
	}
}

func TestStartRejectsInactiveSurvey(t *testing.T) {
	svc, surveyRepo, _ := newTestSubmissionService(t)
	survey, _ := surveyRepo.Create(context.Background(), "draft")

	_, err := svc.Start(context.Background(), survey.ID, "203.0.113.7", chromeUA)
	if !errors.Is(err, apperrors.ErrSurveyNotActive) {
		t.Fatalf("err = %v, want ErrSurveyNotActive", err)
	}
}

func TestUploadMediaValidatesKind(t *testing.T) {
	svc, surveyRepo, _ := newTestSubmissionService(t)
	survey := activeSurvey(t, surveyRepo)
	sub, _ := svc.Start(context.Background(), survey.ID, "", "")

	_, err := svc.UploadMedia(context.Background(), sub.ID, "audio", "x.ogg", []byte("data"))
	if !errors.Is(err, apperrors.ErrInvalidMediaKind) {
		t.Fatalf("err = %v, want ErrInvalidMediaKind", err)
	}
}

func TestUploadMediaWritesImagesAndSegments(t *testing.T) {
	svc, surveyRepo, subRepo := newTestSubmissionService(t)
	survey := activeSurvey(t, surveyRepo)
	sub, _ := svc.Start(context.Background(), survey.ID, "", "")

	imgPath, err := svc.UploadMedia(context.Background(), sub.ID, domain.MediaKindImage, "q1_face.png", []byte("png"))
	if err != nil {
		t.Fatalf("upload image: %v", err)
	}
	if filepath.Base(filepath.Dir(imgPath)) != "images" {
		t.Fatalf("image stored in %q, want images dir", imgPath)
	}

	vidPath, err := svc.UploadMedia(context.Background(), sub.ID, domain.MediaKindVideo, "q1_segment.webm", []byte("webm"))
	if err != nil {
		t.Fatalf("upload video: %v", err)
	}
	if filepath.Base(filepath.Dir(vidPath)) != "segments" {
		t.Fatalf("video stored in %q, want segments dir", vidPath)
	}

	files, _ := subRepo.ListMediaFiles(context.Background(), sub.ID)
	if len(files) != 2 {
		t.Fatalf("media files recorded = %d, want 2", len(files))
	}
}

func TestSaveAnswerValidation(t *testing.T) {
	svc, surveyRepo, _ := newTestSubmissionService(t)
	survey := activeSurvey(t, surveyRepo)
	sub, _ := svc.Start(context.Background(), survey.ID, "", "")

	err := svc.SaveAnswer(context.Background(), sub.ID, &domain.Answer{QuestionID: 1, Answer: "Maybe", FaceScore: 50})
	if !errors.Is(err, apperrors.ErrInvalidAnswer) {
		t.Fatalf("err = %v, want ErrInvalidAnswer", err)
	}

	err = svc.SaveAnswer(context.Background(), sub.ID, &domain.Answer{QuestionID: 1, Answer: domain.AnswerYes, FaceScore: 101})
	if !errors.Is(err, apperrors.ErrInvalidFaceScore) {
		t.Fatalf("err = %v, want ErrInvalidFaceScore", err)
	}

	err = svc.SaveAnswer(context.Background(), sub.ID, &domain.Answer{QuestionID: 1, Answer: domain.AnswerNo, FaceScore: 100})
	if err != nil {
		t.Fatalf("valid answer rejected: %v", err)
	}
}

func TestCompleteRequiresFiveAnswers(t *testing.T) {
	svc, surveyRepo, _ := newTestSubmissionService(t)
	survey := activeSurvey(t, surveyRepo)
	sub, _ := svc.Start(context.Background(), survey.ID, "", "")

	for i := 0; i < 3; i++ {
		_ = svc.SaveAnswer(context.Background(), sub.ID, &domain.Answer{
			QuestionID: survey.Questions[i].ID, Answer: domain.AnswerYes, FaceScore: 80,
		})
	}

	if _, err := svc.Complete(context.Background(), sub.ID); !errors.Is(err, apperrors.ErrQuestionCount) {
		t.Fatalf("err = %v, want ErrQuestionCount", err)
	}
}

func TestCompleteAveragesFaceScores(t *testing.T) {
	svc, surveyRepo, _ := newTestSubmissionService(t)
	survey := activeSurvey(t, surveyRepo)
	sub, _ := svc.Start(context.Background(), survey.ID, "", "")

	scores := []int{80, 85, 90, 70, 82} // mean = 81.4, rounds to 81
	for i, score := range scores {
		err := svc.SaveAnswer(context.Background(), sub.ID, &domain.Answer{
			QuestionID: survey.Questions[i].ID, Answer: domain.AnswerYes, FaceScore: score,
		})
		if err != nil {
			t.Fatalf("SaveAnswer: %v", err)
		}
	}

	done, err := svc.Complete(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.OverallScore == nil || *done.OverallScore != 81 {
		t.Fatalf("overall = %v, want 81", done.OverallScore)
	}
	if done.CompletedAt == nil {
		t.Fatal("completed_at must be set")
	}
}

func TestStartCreatesMediaDirs(t *testing.T) {
	surveyRepo := newFakeSurveyRepo()
	subRepo := newFakeSubmissionRepo()
	root := t.TempDir()
	log := logger.New("error")
	svc := NewSubmissionService(surveyRepo, subRepo, NewMediaStore(root), NewGeoLookup("none", log), NewMonitorHub(log), log)

	survey := activeSurvey(t, surveyRepo)
	if _, err := svc.Start(context.Background(), survey.ID, "", ""); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for _, name := range []string{"images", "segments", "videos"} {
		dir := filepath.Join(root, "submission_1", name)
		if st, err := os.Stat(dir); err != nil || !st.IsDir() {
			t.Fatalf("expected dir %s to exist", dir)
		}
	}
}
