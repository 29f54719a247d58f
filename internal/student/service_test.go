package student_test

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"faceattend/internal/face"
	"faceattend/internal/student"
)

type fakeEnrollments struct {
	created     []student.Student
	hashes      []string
	descriptors []face.Descriptor
	createErr   error
}

func (f *fakeEnrollments) Create(_ context.Context, s student.Student, hash string, d face.Descriptor) (student.Student, error) {
	if f.createErr != nil {
		return student.Student{}, f.createErr
	}
	s.ID = "s1"
	f.created = append(f.created, s)
	f.hashes = append(f.hashes, hash)
	f.descriptors = append(f.descriptors, d)
	return s, nil
}

func (f *fakeEnrollments) List(context.Context) ([]student.Student, error) {
	return f.created, nil
}

func (f *fakeEnrollments) Update(context.Context, string, string, string, *string) error {
	return nil
}

func (f *fakeEnrollments) Delete(context.Context, string) error { return nil }

type fakeUploader struct {
	url string
	err error
}

func (f *fakeUploader) Upload(context.Context, []byte, string) (string, error) {
	return f.url, f.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegister(t *testing.T) {
	repo := &fakeEnrollments{}
	svc := student.NewService(repo, &face.StubExtractor{}, nil, discard())

	created, err := svc.Register(context.Background(), "Ada", "R-101", "secret", []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "s1", created.ID)
	assert.Equal(t, "R-101", created.RollNumber)
	assert.Nil(t, created.PhotoURL)

	require.Len(t, repo.hashes, 1)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.hashes[0]), []byte("secret")))
	require.Len(t, repo.descriptors, 1)
	assert.Len(t, repo.descriptors[0], 128)
}

func TestRegister_NoFace(t *testing.T) {
	repo := &fakeEnrollments{}
	svc := student.NewService(repo, &face.StubExtractor{}, nil, discard())

	// The stub extractor reports no face for an empty sample.
	_, err := svc.Register(context.Background(), "Ada", "R-101", "secret", nil)
	assert.ErrorIs(t, err, face.ErrNoFace)
	assert.Empty(t, repo.created)
}

func TestRegister_DuplicateRoll(t *testing.T) {
	repo := &fakeEnrollments{createErr: student.ErrDuplicateRoll}
	svc := student.NewService(repo, &face.StubExtractor{}, nil, discard())

	_, err := svc.Register(context.Background(), "Ada", "R-101", "secret", []byte("img"))
	assert.ErrorIs(t, err, student.ErrDuplicateRoll)
}

func TestRegister_MissingFields(t *testing.T) {
	svc := student.NewService(&fakeEnrollments{}, &face.StubExtractor{}, nil, discard())
	_, err := svc.Register(context.Background(), "", "R-101", "secret", []byte("img"))
	assert.Error(t, err)
}

func TestRegister_PhotoUpload(t *testing.T) {
	repo := &fakeEnrollments{}
	svc := student.NewService(repo, &face.StubExtractor{}, &fakeUploader{url: "https://cdn/p.jpg"}, discard())

	created, err := svc.Register(context.Background(), "Ada", "R-101", "secret", []byte("img"))
	require.NoError(t, err)
	require.NotNil(t, created.PhotoURL)
	assert.Equal(t, "https://cdn/p.jpg", *created.PhotoURL)
}

func TestRegister_PhotoUploadFailureIsNotFatal(t *testing.T) {
	repo := &fakeEnrollments{}
	svc := student.NewService(repo, &face.StubExtractor{}, &fakeUploader{err: errors.New("cdn down")}, discard())

	created, err := svc.Register(context.Background(), "Ada", "R-101", "secret", []byte("img"))
	require.NoError(t, err)
	assert.Nil(t, created.PhotoURL)
}

func TestDecodeImage(t *testing.T) {
	raw := []byte{0xFF, 0xD8, 0xFF}
	encoded := base64.StdEncoding.EncodeToString(raw)

	got, err := student.DecodeImage(encoded)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	got, err = student.DecodeImage("data:image/jpeg;base64," + encoded)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	_, err = student.DecodeImage("%%not-base64%%")
	assert.Error(t, err)
}
