package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"faceattend/internal/auth"
	"faceattend/internal/face"
	"faceattend/internal/metrics"
	"faceattend/internal/schedule"
)

// EnrollmentSource provides enrolled descriptors in a stable order.
type EnrollmentSource interface {
	Candidates(ctx context.Context) ([]face.Candidate, error)
	Candidate(ctx context.Context, id string) (face.Candidate, error)
}

// SubjectSource lists subject definitions for the resolver.
type SubjectSource interface {
	List(ctx context.Context) ([]schedule.Subject, error)
}

// Records appends attendance facts. Insert reports inserted=false when the
// daily-uniqueness constraint rejected the row.
type Records interface {
	Insert(ctx context.Context, rec Record) (Record, bool, error)
}

// Service runs the attendance decision flow: extract a probe descriptor,
// resolve the active subject, match the identity, record the fact.
type Service struct {
	enrollments EnrollmentSource
	subjects    SubjectSource
	records     Records
	extractor   face.Extractor
	matcher     *face.Matcher
	resolver    *schedule.Resolver
	now         func() time.Time
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewService wires the decision engine. now defaults to time.Now.
func NewService(
	enrollments EnrollmentSource,
	subjects SubjectSource,
	records Records,
	extractor face.Extractor,
	matcher *face.Matcher,
	resolver *schedule.Resolver,
	now func() time.Time,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		enrollments: enrollments,
		subjects:    subjects,
		records:     records,
		extractor:   extractor,
		matcher:     matcher,
		resolver:    resolver,
		now:         now,
		metrics:     m,
		logger:      logger,
	}
}

// ActiveSubject resolves the subject eligible right now, nil when none.
func (s *Service) ActiveSubject(ctx context.Context) (*schedule.Subject, error) {
	subjects, err := s.subjects.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return s.resolver.Active(s.now(), subjects)
}

// Mark processes one attendance attempt for the given principal. Student
// principals verify only against their own descriptor and need an active
// class; admin submissions are searched across all enrollees and may
// record a subjectless event when no class is active. All rejections come
// back as outcomes; only infrastructure faults return an error.
func (s *Service) Mark(ctx context.Context, p auth.Principal, image []byte, locationInfo string) (Outcome, error) {
	now := s.now()

	active, err := s.ActiveSubject(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if active == nil && p.Role == auth.RoleStudent {
		return s.done(Outcome{
			Status: StatusNoActiveClass,
			Reason: "No active class at this time. Attendance window closed.",
		}), nil
	}

	probe, err := s.extractor.Extract(ctx, image)
	if err != nil {
		if errors.Is(err, face.ErrNoFace) {
			return s.done(Outcome{Status: StatusNoFaceDetected, Reason: "No face detected"}), nil
		}
		return Outcome{}, fmt.Errorf("extract descriptor: %w", err)
	}

	matched, outcome, err := s.identify(ctx, p, probe)
	if err != nil {
		return Outcome{}, err
	}
	if outcome != nil {
		return s.done(*outcome), nil
	}

	rec := Record{
		StudentID:    matched.StudentID,
		MarkedAt:     now,
		MarkedOn:     now.In(s.resolver.Location()).Format("2006-01-02"),
		LocationInfo: locationInfo,
	}
	if active != nil {
		rec.SubjectID = &active.ID
	}
	inserted, ok, err := s.records.Insert(ctx, rec)
	if err != nil {
		return Outcome{}, fmt.Errorf("insert attendance: %w", err)
	}
	if !ok {
		return s.done(Outcome{
			Status:  StatusAlreadyMarked,
			Reason:  fmt.Sprintf("Attendance already marked for %s today", active.Name),
			Student: &matched,
			Subject: active,
		}), nil
	}

	reason := fmt.Sprintf("Attendance marked for %s (%s)", matched.Name, matched.RollNumber)
	if active != nil {
		reason += " for " + active.Name
	}
	s.logger.InfoContext(ctx, "attendance recorded",
		"student", matched.RollNumber, "subject", subjectCode(active), "record", inserted.ID)
	return s.done(Outcome{
		Status:  StatusRecorded,
		Reason:  reason,
		Student: &matched,
		Subject: active,
		Record:  &inserted,
	}), nil
}

// identify returns the matched candidate, or a rejection outcome.
func (s *Service) identify(ctx context.Context, p auth.Principal, probe face.Descriptor) (face.Candidate, *Outcome, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveScan(time.Since(start)) }()

	if p.Role == auth.RoleStudent {
		// Self-verification: the candidate set is exactly the caller.
		own, err := s.enrollments.Candidate(ctx, p.ID)
		if err != nil {
			return face.Candidate{}, nil, fmt.Errorf("load enrollment: %w", err)
		}
		if !s.matcher.Verify(probe, own.Descriptor) {
			return face.Candidate{}, &Outcome{
				Status: StatusIdentityMismatch,
				Reason: "Face does not match your registered profile",
			}, nil
		}
		return own, nil, nil
	}

	candidates, err := s.enrollments.Candidates(ctx)
	if err != nil {
		return face.Candidate{}, nil, fmt.Errorf("load enrollments: %w", err)
	}
	matched, ok := s.matcher.Match(probe, candidates)
	if !ok {
		return face.Candidate{}, &Outcome{
			Status: StatusNotRecognized,
			Reason: "Face not recognized",
		}, nil
	}
	return matched, nil, nil
}

func (s *Service) done(o Outcome) Outcome {
	s.metrics.RecordOutcome(string(o.Status))
	return o
}

func subjectCode(s *schedule.Subject) string {
	if s == nil {
		return ""
	}
	return s.Code
}
