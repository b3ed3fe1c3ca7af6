package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/ledgerreplay/internal/adapter/repository/memory"
	"github.com/iho/ledgerreplay/internal/domain"
	"github.com/iho/ledgerreplay/internal/usecase"
	"github.com/iho/ledgerreplay/internal/usecase/mocks"
	fx "github.com/iho/ledgerreplay/tests/testutil"
)

// purgingStore is a history store that records whether it was purged.
type purgingStore struct {
	*memory.HistoryStore
	purged bool
}

func (s *purgingStore) Purge(context.Context) error {
	s.purged = true
	return nil
}

func TestReplayUseCase_Run(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	idGen := mocks.NewMockIDGenerator(ctrl)
	idGen.EXPECT().Generate().Return("01RUN")

	var logs bytes.Buffer
	logger := zerolog.New(&logs).Level(zerolog.InfoLevel)
	uc := usecase.NewReplayUseCase(memory.NewHistoryStore(), idGen, logger, nil)

	sink := &fx.Sink{}
	report, err := uc.Run(context.Background(), usecase.RunInput{
		Source: fx.NewSource(
			fx.Ok(fx.Deposit(t, 1, 1, "1.0")),
			fx.Ok(fx.Deposit(t, 2, 2, "2.0")),
			fx.Ok(fx.Deposit(t, 1, 3, "2.0")),
			fx.Ok(fx.Withdrawal(t, 1, 4, "1.5")),
			fx.Ok(fx.Withdrawal(t, 2, 5, "3.0")),
			fx.RowFailure(7, domain.ErrUnknownKind),
		),
		Sink:      sink,
		Reconcile: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "01RUN", report.RunID)
	assert.Equal(t, 2, report.Accounts)
	assert.Equal(t, 5, report.Stats.Processed)
	assert.Equal(t, 4, report.Stats.Applied)
	assert.Equal(t, 1, report.Stats.RejectedTotal())
	assert.Equal(t, 1, report.Stats.MalformedRows)
	require.NotNil(t, report.Reconciliation)
	assert.Empty(t, report.Reconciliation.Discrepancies)

	require.Equal(t, 1, sink.Writes)
	byClient := sink.ByClient()
	assert.Equal(t, "1.5", byClient[1].Available.String())
	assert.Equal(t, "2", byClient[2].Available.String())

	assert.Contains(t, logs.String(), `"run_id":"01RUN"`)
	assert.Contains(t, logs.String(), `"message":"replay finished"`)
}

func TestReplayUseCase_UsesGivenRunID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	idGen := mocks.NewMockIDGenerator(ctrl)
	uc := usecase.NewReplayUseCase(memory.NewHistoryStore(), idGen, zerolog.Nop(), nil)

	report, err := uc.Run(context.Background(), usecase.RunInput{
		RunID:  "fixed",
		Source: fx.NewSource(),
		Sink:   &fx.Sink{},
	})
	require.NoError(t, err)
	assert.Equal(t, "fixed", report.RunID)
	assert.Nil(t, report.Reconciliation)
}

func TestReplayUseCase_FatalErrorWritesNothing(t *testing.T) {
	store := &purgingStore{HistoryStore: memory.NewHistoryStore()}
	uc := usecase.NewReplayUseCase(store, nil, zerolog.Nop(), nil)

	sink := &fx.Sink{}
	_, err := uc.Run(context.Background(), usecase.RunInput{
		RunID:  "r",
		Source: fx.NewSource(fx.Ok(fx.Deposit(t, 1, 1, "1")), fx.Item{Err: errors.New("unreadable")}),
		Sink:   sink,
	})

	require.Error(t, err)
	assert.Zero(t, sink.Writes)
	assert.True(t, store.purged, "history must be purged even when the run fails")
}

func TestReplayUseCase_SinkError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	boom := errors.New("stdout closed")
	sink := mocks.NewMockSnapshotSink(ctrl)
	sink.EXPECT().Write(gomock.Any(), gomock.Len(1)).Return(boom)

	store := &purgingStore{HistoryStore: memory.NewHistoryStore()}
	uc := usecase.NewReplayUseCase(store, nil, zerolog.Nop(), nil)

	_, err := uc.Run(context.Background(), usecase.RunInput{
		RunID:  "r",
		Source: fx.Of(fx.Deposit(t, 1, 1, "1")),
		Sink:   sink,
	})

	assert.ErrorIs(t, err, boom)
	assert.True(t, store.purged)
}

func TestReplayUseCase_PurgeErrorIsNotFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	purger := mocks.NewMockPurger(ctrl)
	purger.EXPECT().Purge(gomock.Any()).Return(errors.New("redis gone"))

	store := struct {
		*memory.HistoryStore
		usecase.Purger
	}{memory.NewHistoryStore(), purger}

	var logs bytes.Buffer
	uc := usecase.NewReplayUseCase(store, nil, zerolog.New(&logs), nil)

	_, err := uc.Run(context.Background(), usecase.RunInput{
		RunID:  "r",
		Source: fx.Of(fx.Deposit(t, 1, 1, "1")),
		Sink:   &fx.Sink{},
	})

	require.NoError(t, err)
	assert.Contains(t, logs.String(), "failed to purge transaction history")
}
