package errx

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestENilError(t *testing.T) {
	assert.Nil(t, E("op", Internal, nil))
	assert.Nil(t, Msg("op", Invalid, nil, "bad"))
}

func TestErrorString(t *testing.T) {
	err := E("links.Transform", Invalid, errors.New("invalid url"))
	assert.Equal(t, "links.Transform: invalid url", err.Error())

	noOp := &Error{Kind: Internal, Err: errors.New("boom")}
	assert.Equal(t, "boom", noOp.Error())
}

func TestKindOfWrapped(t *testing.T) {
	inner := E("store.Create", Internal, errors.New("disk full"))
	outer := fmt.Errorf("handler: %w", inner)

	assert.Equal(t, Internal, KindOf(outer))
	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
	assert.Equal(t, Unknown, KindOf(nil))
}

func TestKindOfSkipsUnknownLayers(t *testing.T) {
	inner := E("inner", NotFound, errors.New("missing"))
	outer := E("outer", Unknown, inner)

	assert.Equal(t, NotFound, KindOf(outer))
}

func TestMessageOf(t *testing.T) {
	inner := Msg("users.Register", Invalid, errors.New("duplicate"), "Username is already taken.")
	outer := E("handler", Invalid, inner)

	assert.Equal(t, "Username is already taken.", MessageOf(outer))
	assert.Equal(t, "", MessageOf(errors.New("plain")))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "Unauthorized", Unauthorized.String())
	assert.Equal(t, "Kind(42)", Kind(42).String())
}
