// Package testutil holds helpers shared by the tests of several packages.
package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/importer"
	"github.com/trezcool/academia/core/roster"
	"github.com/trezcool/academia/core/user"
	logsvc "github.com/trezcool/academia/services/logger"
)

// NewLogger returns a silent logger.
func NewLogger() core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), core.NewTestConfig())
}

// NewValidator returns a validator with every custom validator registered.
func NewValidator() *validator.Validate {
	validate, _ := NewTranslatedValidator()
	return validate
}

// NewTranslatedValidator is NewValidator plus the translator of its error messages.
func NewTranslatedValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	importer.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateStudents adds one student per roll number to the class of filter.
func CreateStudents(t *testing.T, repo roster.Repository, filter roster.Filter, rolls ...string) []roster.Student {
	t.Helper()

	students := make([]roster.Student, 0, len(rolls))
	for _, roll := range rolls {
		students = append(students, roster.Student{
			RollNumber: roll,
			Name:       "Student " + roll,
			Branch:     filter.Branch,
			Year:       filter.Year,
			Semester:   filter.Semester,
			Section:    filter.Section,
			CreatedAt:  time.Now().UTC(),
		})
	}
	created, err := repo.CreateStudents(context.Background(), students...)
	if err != nil {
		t.Fatalf("CreateStudents() failed: %v", err)
	}
	return created
}
