package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/career-consultant/internal/domain"
)

// MovieCatalog is a mock of domain.MovieCatalog.
type MovieCatalog struct {
	mock.Mock
}

// Discover provides a mock function with given fields: ctx, q
func (_m *MovieCatalog) Discover(ctx domain.Context, q domain.MovieQuery) ([]domain.Movie, error) {
	ret := _m.Called(ctx, q)
	if rf, ok := ret.Get(0).(func(domain.Context, domain.MovieQuery) ([]domain.Movie, error)); ok {
		return rf(ctx, q)
	}
	var out []domain.Movie
	if v := ret.Get(0); v != nil {
		out = v.([]domain.Movie)
	}
	return out, ret.Error(1)
}

// NewMovieCatalog creates a mock and registers AssertExpectations on cleanup.
func NewMovieCatalog(t interface {
	mock.TestingT
	Cleanup(func())
}) *MovieCatalog {
	m := &MovieCatalog{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
