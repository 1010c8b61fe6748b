package model

import (
	"context"
	"errors"
	"philo-chat-go/pkg/errs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedProvider struct {
	reply string
	err   error
	calls [][]Message
}

func (p *scriptedProvider) Complete(_ context.Context, messages []Message) (string, error) {
	p.calls = append(p.calls, append([]Message(nil), messages...))
	if p.err != nil {
		return "", p.err
	}
	return p.reply, nil
}

type fixedRenderer struct {
	last PromptVars
	err  error
}

func (r *fixedRenderer) Render(vars PromptVars) (string, error) {
	r.last = vars
	if r.err != nil {
		return "", r.err
	}
	return "prime:" + vars.PhilosopherName + ":" + vars.InputText, nil
}

var socrates = &Philosopher{ID: 1, Name: "Socrates"}

func TestChat_FirstTurnPrimesAndHidesPriming(t *testing.T) {
	chat := NewChat("c1", socrates)
	provider := &scriptedProvider{reply: "  Virtue is knowledge.  "}
	renderer := &fixedRenderer{}
	profile := Profile{Username: "ada", Name: "Ada", Age: 36}

	assistant, user, err := chat.CompleteChat(context.Background(), "  What is virtue? ", profile, renderer, provider)
	require.NoError(t, err)

	assert.Equal(t, RoleAssistant, assistant.Role)
	assert.Equal(t, "Socrates", assistant.Author)
	assert.Equal(t, "Virtue is knowledge.", assistant.Content)
	assert.Equal(t, RoleUser, user.Role)
	assert.Equal(t, "ada", user.Author)
	assert.Equal(t, "What is virtue?", user.Content)

	assert.Equal(t, PromptVars{InputText: "What is virtue?", PhilosopherName: "Socrates", UserName: "Ada", UserAge: 36}, renderer.last)

	require.Len(t, provider.calls, 1)
	sent := provider.calls[0]
	require.Len(t, sent, 2)
	assert.Equal(t, "prime:Socrates:What is virtue?", sent[0].Content)
	assert.Equal(t, "What is virtue?", sent[1].Content)

	assert.True(t, chat.IsPrimed())
	assert.Len(t, chat.Messages(), 3)
	assert.Equal(t, []Message{user, assistant}, chat.History())
}

func TestChat_LaterTurnsSendWholeSequence(t *testing.T) {
	chat := NewChat("c1", socrates)
	provider := &scriptedProvider{reply: "ok"}
	renderer := &fixedRenderer{}
	profile := Profile{Username: "ada"}

	_, _, err := chat.CompleteChat(context.Background(), "one", profile, renderer, provider)
	require.NoError(t, err)
	renderer.last = PromptVars{}

	_, _, err = chat.CompleteChat(context.Background(), "two", profile, renderer, provider)
	require.NoError(t, err)

	assert.Equal(t, PromptVars{}, renderer.last, "priming is rendered only once")
	require.Len(t, provider.calls, 2)
	assert.Len(t, provider.calls[1], 4)
	assert.Len(t, chat.History(), 4)
}

func TestChat_BlankInputAppendsNothing(t *testing.T) {
	chat := NewChat("c1", socrates)
	provider := &scriptedProvider{reply: "ok"}

	_, _, err := chat.CompleteChat(context.Background(), "   ", Profile{Username: "ada"}, &fixedRenderer{}, provider)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindBadRequest))
	assert.Empty(t, provider.calls)
	assert.False(t, chat.IsPrimed())
}

func TestChat_ProviderFailureLeavesChatUnchanged(t *testing.T) {
	chat := NewChat("c1", socrates)
	provider := &scriptedProvider{err: errors.New("rate limited")}

	_, _, err := chat.CompleteChat(context.Background(), "hello", Profile{Username: "ada"}, &fixedRenderer{}, provider)
	require.Error(t, err)
	assert.Equal(t, errs.KindLLM, errs.KindOf(err))
	assert.ErrorContains(t, err, "rate limited")
	assert.False(t, chat.IsPrimed())
	assert.Empty(t, chat.History())

	provider.err = nil
	provider.reply = "hi"
	_, _, err = chat.CompleteChat(context.Background(), "hello again", Profile{Username: "ada"}, &fixedRenderer{}, provider)
	require.NoError(t, err)
	assert.Len(t, chat.Messages(), 3)
}

func TestChat_RenderFailureIsNotLLMError(t *testing.T) {
	chat := NewChat("c1", socrates)
	provider := &scriptedProvider{reply: "ok"}

	_, _, err := chat.CompleteChat(context.Background(), "hello", Profile{}, &fixedRenderer{err: errors.New("bad template")}, provider)
	require.Error(t, err)
	assert.Equal(t, errs.KindUnknown, errs.KindOf(err))
	assert.Empty(t, provider.calls)
}

func TestChat_HistoryIsACopy(t *testing.T) {
	chat := RestoreChat("c1", socrates, []Message{
		NewMessage(RoleUser, "ada", "prime"),
		NewMessage(RoleUser, "ada", "q"),
		NewMessage(RoleAssistant, "Socrates", "a"),
	}, time.Time{})
	history := chat.History()
	history[0].Content = "changed"
	assert.Equal(t, "q", chat.History()[0].Content)
	assert.Equal(t, 2, chat.Summary().MessageCount)
}
