package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/career-consultant/internal/domain"
)

// CompletionClient is a mock of domain.CompletionClient.
type CompletionClient struct {
	mock.Mock
}

// Complete provides a mock function with given fields: ctx, req
func (_m *CompletionClient) Complete(ctx domain.Context, req domain.CompletionRequest) (string, error) {
	ret := _m.Called(ctx, req)
	if rf, ok := ret.Get(0).(func(domain.Context, domain.CompletionRequest) (string, error)); ok {
		return rf(ctx, req)
	}
	return ret.String(0), ret.Error(1)
}

// NewCompletionClient creates a mock and registers AssertExpectations on cleanup.
func NewCompletionClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *CompletionClient {
	m := &CompletionClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
