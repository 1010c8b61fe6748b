package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"philo-chat-go/pkg/tasks"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	queue     []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.queue) == 0 {
		return kafka.Message{}, context.Canceled
	}
	m := r.queue[0]
	r.queue = r.queue[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

// fakeProcessor 前 failures 次调用返回错误；failures 为负时始终失败。
type fakeProcessor struct {
	failures int
	tasks    []tasks.ChatIndexTask
	onCall   func()
}

func (p *fakeProcessor) Process(_ context.Context, task tasks.ChatIndexTask) error {
	p.tasks = append(p.tasks, task)
	if p.onCall != nil {
		p.onCall()
	}
	if p.failures < 0 || len(p.tasks) <= p.failures {
		return errors.New("index down")
	}
	return nil
}

func fastRetry(t *testing.T) {
	t.Helper()
	old := retryBackoff
	retryBackoff = time.Millisecond
	t.Cleanup(func() { retryBackoff = old })
}

func message(t *testing.T, offset int64, task tasks.ChatIndexTask) kafka.Message {
	t.Helper()
	b, err := json.Marshal(task)
	require.NoError(t, err)
	return kafka.Message{Topic: "chat-turns", Offset: offset, Value: b}
}

func TestConsumeCommitsProcessedAndMalformed(t *testing.T) {
	task := tasks.ChatIndexTask{Username: "ada", ChatName: "c1"}
	r := &fakeReader{queue: []kafka.Message{
		message(t, 1, task),
		{Topic: "chat-turns", Offset: 2, Value: []byte("{not json")},
	}}
	p := &fakeProcessor{}

	consume(context.Background(), r, p)

	require.Len(t, p.tasks, 1)
	assert.Equal(t, "ada/c1", p.tasks[0].Key())
	assert.Equal(t, []int64{1, 2}, r.committed)
}

func TestConsumeRetriesInPlaceUntilSuccess(t *testing.T) {
	fastRetry(t)
	task := tasks.ChatIndexTask{Username: "ada", ChatName: "c1"}
	// 每条消息只投递一次，与真实 Reader 一致
	r := &fakeReader{queue: []kafka.Message{message(t, 7, task), message(t, 8, task)}}
	p := &fakeProcessor{failures: maxAttempts - 1}

	consume(context.Background(), r, p)

	assert.Len(t, p.tasks, maxAttempts+1)
	assert.Equal(t, []int64{7, 8}, r.committed)
}

func TestConsumeGivesUpAfterMaxAttempts(t *testing.T) {
	fastRetry(t)
	task := tasks.ChatIndexTask{Username: "ada", ChatName: "c1"}
	r := &fakeReader{queue: []kafka.Message{message(t, 7, task)}}
	p := &fakeProcessor{failures: -1}

	consume(context.Background(), r, p)

	assert.Len(t, p.tasks, maxAttempts)
	assert.Equal(t, []int64{7}, r.committed)
}

func TestConsumeStopsWithoutCommitWhenCancelled(t *testing.T) {
	task := tasks.ChatIndexTask{Username: "ada", ChatName: "c1"}
	r := &fakeReader{queue: []kafka.Message{message(t, 7, task)}}
	ctx, cancel := context.WithCancel(context.Background())
	p := &fakeProcessor{failures: -1, onCall: cancel}

	consume(ctx, r, p)

	assert.Len(t, p.tasks, 1)
	assert.Empty(t, r.committed)
}

func TestProducerKeysByUser(t *testing.T) {
	task := tasks.ChatIndexTask{Action: tasks.ActionDeleteUser, Username: "ada"}
	assert.Equal(t, "ada", task.PartitionKey())
	assert.Equal(t, tasks.ChatIndexTask{Username: "ada", ChatName: "c1"}.PartitionKey(), task.PartitionKey())
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitBrokers(" a:9092, ,b:9092 "))
	assert.Empty(t, splitBrokers(""))
}
