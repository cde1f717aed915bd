// Package mocks holds testify mocks for the domain ports, in the shape
// mockery produces for them.
package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/career-consultant/internal/domain"
)

// SessionRepository is a mock of domain.SessionRepository.
type SessionRepository struct {
	mock.Mock
}

// Get provides a mock function with given fields: ctx, id
func (_m *SessionRepository) Get(ctx domain.Context, id string) (domain.Session, error) {
	ret := _m.Called(ctx, id)
	if rf, ok := ret.Get(0).(func(domain.Context, string) (domain.Session, error)); ok {
		return rf(ctx, id)
	}
	var s domain.Session
	if v := ret.Get(0); v != nil {
		s = v.(domain.Session)
	}
	return s, ret.Error(1)
}

// Save provides a mock function with given fields: ctx, s
func (_m *SessionRepository) Save(ctx domain.Context, s domain.Session) error {
	ret := _m.Called(ctx, s)
	if rf, ok := ret.Get(0).(func(domain.Context, domain.Session) error); ok {
		return rf(ctx, s)
	}
	return ret.Error(0)
}

// Delete provides a mock function with given fields: ctx, id
func (_m *SessionRepository) Delete(ctx domain.Context, id string) error {
	ret := _m.Called(ctx, id)
	if rf, ok := ret.Get(0).(func(domain.Context, string) error); ok {
		return rf(ctx, id)
	}
	return ret.Error(0)
}

// NewSessionRepository creates a mock and registers AssertExpectations on cleanup.
func NewSessionRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *SessionRepository {
	m := &SessionRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
