package api

import (
	"context"

	"github.com/terra-clan/learning-engine/internal/models"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
	courseContextKey    contextKey = "course"
)

// PrincipalFromContext extracts the authenticated caller from context
func PrincipalFromContext(ctx context.Context) *models.Principal {
	p, ok := ctx.Value(principalContextKey).(*models.Principal)
	if !ok {
		return nil
	}
	return p
}

// ContextWithPrincipal adds the authenticated caller to context
func ContextWithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

func courseFromContext(ctx context.Context) *models.Course {
	c, _ := ctx.Value(courseContextKey).(*models.Course)
	return c
}

func contextWithCourse(ctx context.Context, c *models.Course) context.Context {
	return context.WithValue(ctx, courseContextKey, c)
}
