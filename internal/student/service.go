package student

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"faceattend/internal/face"
)

// Enrollments is the store the service writes through. Satisfied by
// *Repository; tests substitute a fake.
type Enrollments interface {
	Create(ctx context.Context, s Student, passwordHash string, descriptor face.Descriptor) (Student, error)
	List(ctx context.Context) ([]Student, error)
	Update(ctx context.Context, id, name, rollNumber string, passwordHash *string) error
	Delete(ctx context.Context, id string) error
}

// PhotoUploader stores the captured registration photo and returns its
// public URL. Optional; nil means photos are not kept.
type PhotoUploader interface {
	Upload(ctx context.Context, data []byte, name string) (string, error)
}

// Service handles enrollment. Registration requires a successful
// descriptor extraction; a face-less sample is a rejection, not a fault.
type Service struct {
	repo      Enrollments
	extractor face.Extractor
	photos    PhotoUploader
	logger    *slog.Logger
}

// NewService creates the enrollment service.
func NewService(repo Enrollments, extractor face.Extractor, photos PhotoUploader, logger *slog.Logger) *Service {
	return &Service{repo: repo, extractor: extractor, photos: photos, logger: logger}
}

// Register enrolls a new student from a face sample. Returns face.ErrNoFace
// when the sample contains no detectable face and ErrDuplicateRoll when the
// roll number is taken.
func (s *Service) Register(ctx context.Context, name, rollNumber, password string, image []byte) (Student, error) {
	if name == "" || rollNumber == "" || password == "" {
		return Student{}, errors.New("name, roll number and password required")
	}

	descriptor, err := s.extractor.Extract(ctx, image)
	if err != nil {
		return Student{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Student{}, fmt.Errorf("hash password: %w", err)
	}

	st := Student{Name: name, RollNumber: rollNumber}
	if s.photos != nil {
		url, err := s.photos.Upload(ctx, image, rollNumber)
		if err != nil {
			// Photo storage is auxiliary; enrollment proceeds without it.
			s.logger.WarnContext(ctx, "photo upload failed", "roll_number", rollNumber, "error", err)
		} else {
			st.PhotoURL = &url
		}
	}

	created, err := s.repo.Create(ctx, st, string(hash), descriptor)
	if err != nil {
		return Student{}, err
	}
	s.logger.InfoContext(ctx, "student registered", "roll_number", created.RollNumber, "id", created.ID)
	return created, nil
}

// List returns all enrolled students.
func (s *Service) List(ctx context.Context) ([]Student, error) {
	return s.repo.List(ctx)
}

// Update changes a student's name, roll number and optionally password.
func (s *Service) Update(ctx context.Context, id, name, rollNumber, password string) error {
	if id == "" || name == "" || rollNumber == "" {
		return errors.New("id, name and roll number required")
	}
	var hash *string
	if password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		hs := string(h)
		hash = &hs
	}
	return s.repo.Update(ctx, id, name, rollNumber, hash)
}

// Delete removes a student and, by cascade, their attendance history.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("id required")
	}
	return s.repo.Delete(ctx, id)
}
