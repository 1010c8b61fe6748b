package model

import (
	"context"
	"errors"
	"philo-chat-go/pkg/errs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var plato = &Philosopher{ID: 2, Name: "Plato"}

func TestUser_NewChatRejectsDuplicateName(t *testing.T) {
	u := NewUser("ada", "hash")
	require.NoError(t, u.NewChat("c1", socrates))

	err := u.NewChat("c1", plato)
	assert.Equal(t, errs.KindBadRequest, errs.KindOf(err))

	assert.NoError(t, u.NewChat("C1", plato), "names are case-sensitive")
	assert.Equal(t, errs.KindBadRequest, errs.KindOf(u.NewChat("  ", plato)))

	other := NewUser("bob", "hash")
	assert.NoError(t, other.NewChat("c1", socrates))
}

func TestUser_ListChatsInCreationOrder(t *testing.T) {
	u := NewUser("ada", "hash")
	_, err := u.ListChats()
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))

	require.NoError(t, u.NewChat("b", socrates))
	require.NoError(t, u.NewChat("a", plato))

	chats, err := u.ListChats()
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "b", chats[0].Name)
	assert.Equal(t, "Socrates", chats[0].Philosopher.Name)
	assert.Equal(t, "a", chats[1].Name)
}

func TestUser_SelectExitAndDelete(t *testing.T) {
	u := NewUser("ada", "hash")
	_, err := u.SelectChat("missing")
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
	assert.Equal(t, errs.KindBadRequest, errs.KindOf(u.ExitChat()))

	require.NoError(t, u.NewChat("c1", socrates))
	history, err := u.SelectChat("c1")
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
	assert.Equal(t, "c1", u.SelectedChat())

	require.NoError(t, u.ExitChat())
	assert.Equal(t, "", u.SelectedChat())

	_, err = u.SelectChat("c1")
	require.NoError(t, err)
	require.NoError(t, u.DeleteChat("c1"))
	assert.Equal(t, "", u.SelectedChat())
	assert.Equal(t, errs.KindBadRequest, errs.KindOf(u.ExitChat()))
	assert.Equal(t, errs.KindNotFound, errs.KindOf(u.DeleteChat("c1")))
}

func TestUser_DeleteUnselectedChatKeepsSelection(t *testing.T) {
	u := NewUser("ada", "hash")
	require.NoError(t, u.NewChat("c1", socrates))
	require.NoError(t, u.NewChat("c2", plato))
	_, err := u.SelectChat("c1")
	require.NoError(t, err)

	require.NoError(t, u.DeleteChat("c2"))
	assert.Equal(t, "c1", u.SelectedChat())

	chats, err := u.ListChats()
	require.NoError(t, err)
	assert.Len(t, chats, 1)
}

func TestUser_CompleteChatRequiresSelection(t *testing.T) {
	u := NewUser("ada", "hash")
	provider := &scriptedProvider{reply: "ok"}

	_, _, _, err := u.CompleteChat(context.Background(), "hi", &fixedRenderer{}, provider)
	assert.Equal(t, errs.KindBadRequest, errs.KindOf(err))
	assert.Empty(t, provider.calls)
}

func TestUser_CompleteChatUsesProfile(t *testing.T) {
	u := NewUser("ada", "hash")
	u.SetName("Ada Lovelace")
	u.SetAge(36)
	require.NoError(t, u.NewChat("c1", socrates))
	_, err := u.SelectChat("c1")
	require.NoError(t, err)

	renderer := &fixedRenderer{}
	assistant, user, chatName, err := u.CompleteChat(context.Background(), "What is virtue?", renderer, &scriptedProvider{reply: "Knowledge."})
	require.NoError(t, err)
	assert.Equal(t, "c1", chatName)
	assert.Equal(t, "Ada Lovelace", renderer.last.UserName)
	assert.Equal(t, 36, renderer.last.UserAge)

	history, err := u.ChatHistory("c1")
	require.NoError(t, err)
	assert.Equal(t, []Message{user, assistant}, history)

	_, err = u.ChatHistory("nope")
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestUser_RecordRoundTrip(t *testing.T) {
	u := NewUser("ada", "hash")
	u.SetName("Ada")
	u.SetAge(36)
	u.SetProfilePicture("avatars/ada_profile.png")
	require.NoError(t, u.NewChat("second", plato))
	require.NoError(t, u.NewChat("first", socrates))
	_, err := u.SelectChat("first")
	require.NoError(t, err)
	_, _, _, err = u.CompleteChat(context.Background(), "hello", &fixedRenderer{}, &scriptedProvider{reply: "greetings"})
	require.NoError(t, err)

	rec := u.Record()
	require.Len(t, rec.Chats, 2)
	assert.Equal(t, 0, rec.Chats[0].Position)
	assert.Equal(t, 2, rec.Chats[0].PhilosopherID)
	require.Len(t, rec.Chats[1].Messages, 3)
	assert.Equal(t, 0, rec.Chats[1].Messages[0].Seq)

	// 打乱顺序，RestoreUser 应按 Position/Seq 还原
	rec.Chats[0], rec.Chats[1] = rec.Chats[1], rec.Chats[0]
	msgs := rec.Chats[0].Messages
	msgs[0], msgs[2] = msgs[2], msgs[0]

	lookup := func(id int) (*Philosopher, bool) {
		if id == socrates.ID {
			return socrates, true
		}
		return nil, false
	}
	restored := RestoreUser(rec, lookup)

	assert.Equal(t, u.Profile(), restored.Profile())
	assert.Equal(t, "hash", restored.PasswordHash())
	assert.Equal(t, "", restored.SelectedChat())

	chats, err := restored.ListChats()
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "second", chats[0].Name)
	assert.Equal(t, 2, chats[0].Philosopher.ID, "unknown philosopher keeps its id")
	assert.Equal(t, "first", chats[1].Name)
	assert.Same(t, socrates, restored.chats["first"].Philosopher())

	history, err := restored.ChatHistory("first")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, "greetings", history[1].Content)
}

func TestUser_FailedTurnKeepsChatEmpty(t *testing.T) {
	u := NewUser("ada", "hash")
	require.NoError(t, u.NewChat("c1", socrates))
	_, err := u.SelectChat("c1")
	require.NoError(t, err)

	_, _, _, err = u.CompleteChat(context.Background(), "hi", &fixedRenderer{}, &scriptedProvider{err: errors.New("down")})
	assert.Equal(t, errs.KindLLM, errs.KindOf(err))

	history, err := u.ChatHistory("c1")
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, u.Record().Chats[0].Messages)
}
