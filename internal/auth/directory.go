package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"gupio-parking-backend/internal/model"
)

const (
	DefaultEmployeeID = "EMP001"
	DefaultName       = "John Doe"
	DefaultPassword   = "password123"
)

var ErrInvalidCredentials = errors.New("invalid employee id or password")

// Employee is a directory entry. PasswordHash is a bcrypt hash.
type Employee struct {
	EmployeeID   string `yaml:"employee_id"`
	Name         string `yaml:"name"`
	PasswordHash string `yaml:"password_hash"`
}

// Directory resolves employee credentials.
type Directory struct {
	employees map[string]Employee
}

// NewDirectory builds a directory from the given entries. With no entries the
// demo employee is registered.
func NewDirectory(entries []Employee) (*Directory, error) {
	if len(entries) == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash default password: %w", err)
		}
		entries = []Employee{{EmployeeID: DefaultEmployeeID, Name: DefaultName, PasswordHash: string(hash)}}
	}

	d := &Directory{employees: make(map[string]Employee, len(entries))}
	for _, e := range entries {
		id := strings.TrimSpace(e.EmployeeID)
		if id == "" {
			return nil, errors.New("directory entry without employee id")
		}
		if _, err := bcrypt.Cost([]byte(e.PasswordHash)); err != nil {
			return nil, fmt.Errorf("employee %s: invalid password hash: %w", id, err)
		}
		e.EmployeeID = id
		d.employees[id] = e
	}
	return d, nil
}

// Authenticate checks the password and returns the matching user.
func (d *Directory) Authenticate(employeeID, password string) (model.User, error) {
	e, ok := d.employees[strings.TrimSpace(employeeID)]
	if !ok {
		return model.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(e.PasswordHash), []byte(password)); err != nil {
		return model.User{}, ErrInvalidCredentials
	}
	return model.User{EmployeeID: e.EmployeeID, Name: e.Name}, nil
}

// Lookup returns the user for an employee id.
func (d *Directory) Lookup(employeeID string) (model.User, bool) {
	e, ok := d.employees[strings.TrimSpace(employeeID)]
	if !ok {
		return model.User{}, false
	}
	return model.User{EmployeeID: e.EmployeeID, Name: e.Name}, true
}
