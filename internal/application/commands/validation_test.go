package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "snapgram-sync/pkg/errors"
)

func TestValidator(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   any
		wantErr string
	}{
		{name: "complete delete", input: DeletePostInput{PostID: "p1", ImageID: "f1"}},
		{name: "missing image id", input: DeletePostInput{PostID: "p1"}, wantErr: "imageId: is required"},
		{name: "whitespace counts as missing", input: SavePostInput{UserID: " ", PostID: "p1"}, wantErr: "userId: is required"},
		{name: "whitespace image id", input: DeletePostInput{PostID: "p1", ImageID: "   "}, wantErr: "imageId: is required"},
		{name: "whitespace profile name", input: CreateAccountInput{Name: "  ", Username: "ada", Email: "ada@example.com", Password: "engine-1843"}, wantErr: "Name: is required"},
		{name: "nil file", input: CreatePostInput{CreatorID: "u1"}, wantErr: "file: is required"},
		{name: "bad email", input: SignInInput{Email: "nope", Password: "x"}, wantErr: "email: must be a valid email address"},
		{name: "like flag mismatch", input: LikePostInput{PostID: "p1", UserID: "u1", Liked: true}, wantErr: "membership of u1"},
		{name: "unlike with empty set", input: LikePostInput{PostID: "p1", UserID: "u1", Liked: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperrors.IsInvalidArgument(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetValidatorIsShared(t *testing.T) {
	require.NotPanics(t, func() { GetValidator() })
	assert.Same(t, GetValidator(), GetValidator())
}
