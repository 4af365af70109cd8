package validation

import (
	"strings"
	"testing"

	"mvp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "secret1", false},
		{"Exactly Min Length", "abcdef", false},
		{"Exactly Max Length", strings.Repeat("a", 72), false},
		{"Too Short", "abc", true},
		{"Too Long", strings.Repeat("a", 73), true},
		{"Blank", "      ", true},
		{"Unicode Counts Runes", "ÅÅÅÅÅÅ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"Valid", "test_user123", false},
		{"Dot Inside", "anna.meier", false},
		{"Too Short", "tu", true},
		{"Too Long", strings.Repeat("a", 31), true},
		{"Illegal Chars", "user@123", true},
		{"Starts Dash", "-user", true},
		{"Ends Underscore", "user_", true},
		{"Ends Dot", "user.", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"Valid", "test@example.com", false},
		{"Subdomain", "a.b@mail.example.de", false},
		{"Invalid Format", "not-an-email", true},
		{"Missing Domain", "user@", true},
		{"Multiple At Symbols", "user@@example.com", true},
		{"Space In Local Part", "user @example.com", true},
		{"Trailing Dot In Domain", "user@example.com.", true},
		{"Too Long", strings.Repeat("a", 250) + "@x.de", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateInterests(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateInterests([]string{"Sport", "Musik"}, models.InterestOptions))
	assert.NoError(t, ValidateInterests(nil, models.InterestOptions))
	assert.Error(t, ValidateInterests([]string{"Golf"}, models.InterestOptions))
	assert.Error(t, ValidateInterests([]string{"Sport", "Sport"}, models.InterestOptions))
}

func TestStruct_Forms(t *testing.T) {
	t.Parallel()
	price := -1.0
	tests := []struct {
		name    string
		form    interface{}
		wantMsg string
	}{
		{name: "login ok", form: LoginForm{Email: "a@b.de", Password: "x"}},
		{name: "login blank email", form: LoginForm{Email: "  ", Password: "x"}, wantMsg: "email is required"},
		{name: "register ok", form: RegisterForm{Email: "a@b.de", Password: "secret1"}},
		{name: "register bad email", form: RegisterForm{Email: "nope", Password: "secret1"}, wantMsg: "invalid email format"},
		{name: "register short password", form: RegisterForm{Email: "a@b.de", Password: "abc"}, wantMsg: "password must be at least 6 characters long"},
		{name: "onboarding ok", form: OnboardingForm{Name: "Anna", Username: "anna", Interests: []string{"Sport"}}},
		{name: "onboarding blank name", form: OnboardingForm{Name: " ", Username: "anna"}, wantMsg: "name is required"},
		{name: "onboarding bad username", form: OnboardingForm{Name: "Anna", Username: "a!"}, wantMsg: "username must be at least 3 characters long"},
		{name: "onboarding unknown interest", form: OnboardingForm{Name: "Anna", Username: "anna", Interests: []string{"Golf"}}, wantMsg: "unknown interest"},
		{name: "post with image only", form: PostForm{HasImage: true}},
		{name: "post with message only", form: PostForm{Message: "hi"}},
		{name: "post empty", form: PostForm{}, wantMsg: "message or image is required"},
		{name: "post blank message", form: PostForm{Message: "  \n"}, wantMsg: "message or image is required"},
		{name: "post blank message with image", form: PostForm{Message: " ", HasImage: true}},
		{name: "event ok", form: EventForm{Title: "Konzert"}},
		{name: "event no title", form: EventForm{}, wantMsg: "title is required"},
		{name: "event negative price", form: EventForm{Title: "x", Price: &price}, wantMsg: "price must be greater than or equal to 0"},
		{name: "comment blank", form: CommentForm{Text: "\t"}, wantMsg: "comment is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Struct(tt.form)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, models.HasCode(err, models.CodeValidation))
			assert.Equal(t, tt.wantMsg, models.UserMessage(err))
		})
	}
}

func TestToDetails(t *testing.T) {
	t.Parallel()

	err := Struct(RegisterForm{Email: "nope", Password: "abc"})
	require.Error(t, err)
	assert.Equal(t, map[string]string{
		"email":    "invalid email format",
		"password": "password must be at least 6 characters long",
	}, ToDetails(err))

	assert.Nil(t, ToDetails(nil))
	assert.Nil(t, ToDetails(models.NewValidationError("plain")))
}
