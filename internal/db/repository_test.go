//go:build integration

package db

import (
	"context"
	"log"
	"testing"
	"time"

	"gateway-emulator/internal/apperr"
	"gateway-emulator/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type DeliveryRepositoryTestSuite struct {
	suite.Suite
	pgContainer *postgresContainer
	pool        *pgxpool.Pool
	sut         *DeliveryRepository
	ctx         context.Context
}

func (s *DeliveryRepositoryTestSuite) SetupSuite() {
	time.Local = time.UTC

	s.ctx = context.Background()
	pgContainer, err := createPostgresContainer(s.ctx)
	if err != nil {
		log.Fatal(err)
	}
	s.pgContainer = pgContainer

	if err := RunMigrations(pgContainer.ConnectionString, "../../migrations"); err != nil {
		log.Fatal(err)
	}

	pool, err := GetPool(s.ctx, pgContainer.ConnectionString)
	if err != nil {
		log.Fatal(err)
	}

	s.pool = pool
	s.sut = NewDeliveryRepository(pool)
}

func (s *DeliveryRepositoryTestSuite) TearDownSuite() {
	s.pool.Close()

	if err := s.pgContainer.Terminate(s.ctx); err != nil {
		log.Fatalf("error terminating postgres container: %s", err)
	}
}

func (s *DeliveryRepositoryTestSuite) SetupTest() {
	_, err := s.pool.Exec(s.ctx, "DELETE FROM webhook_delivery")
	if err != nil {
		log.Fatalf("error truncating webhook_delivery table: %s", err)
	}
}

func newDelivery(createdAt time.Time) *model.Delivery {
	scheduledAt := createdAt.Add(5 * time.Second)
	return &model.Delivery{
		ID:          uuid.New(),
		Gateway:     model.GatewayPayment,
		EventType:   "payment.success",
		Subject:     "txn_" + uuid.NewString(),
		URL:         "http://example.com/hook",
		Payload:     `{"status":"success"}`,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
		ScheduledAt: &scheduledAt,
	}
}

func (s *DeliveryRepositoryTestSuite) TestCreateAndGet() {
	t := s.T()
	now := time.Now().Truncate(time.Microsecond)
	delivery := newDelivery(now)

	require.NoError(t, s.sut.Create(s.ctx, delivery))

	got, err := s.sut.GetByID(s.ctx, delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, delivery.Subject, got.Subject)
	assert.Equal(t, delivery.Payload, got.Payload)
	assert.Equal(t, 0, got.Attempts)
	require.NotNil(t, got.ScheduledAt)
	assert.True(t, delivery.ScheduledAt.Equal(*got.ScheduledAt))
	assert.Nil(t, got.DeliveredAt)
	assert.Nil(t, got.Error)
}

func (s *DeliveryRepositoryTestSuite) TestUpdate() {
	t := s.T()
	now := time.Now().Truncate(time.Microsecond)
	delivery := newDelivery(now)
	require.NoError(t, s.sut.Create(s.ctx, delivery))

	deliveredAt := now.Add(6 * time.Second)
	errMsg := "error response: 500 Internal Server Error"
	delivery.Attempts = 2
	delivery.ScheduledAt = nil
	delivery.DeliveredAt = &deliveredAt
	delivery.Error = &errMsg
	delivery.UpdatedAt = deliveredAt
	require.NoError(t, s.sut.Update(s.ctx, delivery))

	got, err := s.sut.GetByID(s.ctx, delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Attempts)
	assert.Nil(t, got.ScheduledAt)
	require.NotNil(t, got.DeliveredAt)
	assert.True(t, deliveredAt.Equal(*got.DeliveredAt))
	require.NotNil(t, got.Error)
	assert.Equal(t, errMsg, *got.Error)
}

func (s *DeliveryRepositoryTestSuite) TestListRecent() {
	t := s.T()
	now := time.Now().Truncate(time.Microsecond)
	older := newDelivery(now.Add(-time.Minute))
	newer := newDelivery(now)
	require.NoError(t, s.sut.Create(s.ctx, older))
	require.NoError(t, s.sut.Create(s.ctx, newer))

	got, err := s.sut.ListRecent(s.ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, older.ID, got[1].ID)

	got, err = s.sut.ListRecent(s.ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func (s *DeliveryRepositoryTestSuite) TestGetByID_NotFound() {
	_, err := s.sut.GetByID(s.ctx, uuid.New())
	assert.True(s.T(), apperr.Is(err, apperr.KindNotFound))
}

func TestDeliveryRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(DeliveryRepositoryTestSuite))
}
