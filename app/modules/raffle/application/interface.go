package raffleservice

import (
	"context"
	"math/big"
	"time"

	raffledomain "github.com/Black-And-White-Club/raffle/app/modules/raffle/domain"
)

// Service is the raffle contract surface.
type Service interface {
	// Initialize creates the configured raffle on first start and returns its state.
	Initialize(ctx context.Context) (*Snapshot, error)

	Enter(ctx context.Context, player raffledomain.Address, value int64) (*EnterResult, error)
	CheckUpkeep(ctx context.Context, performData []byte) (*UpkeepResult, error)
	PerformUpkeep(ctx context.Context, performData []byte) (*PerformUpkeepResult, error)
	FulfillRandomWords(ctx context.Context, caller raffledomain.Address, requestID raffledomain.RequestID, randomWords []*big.Int) (*FulfillResult, error)

	GetEntranceFee(ctx context.Context) (int64, error)
	GetRaffleState(ctx context.Context) (raffledomain.State, error)
	GetInterval(ctx context.Context) (time.Duration, error)
	GetNumberOfPlayers(ctx context.Context) (int, error)
	GetPlayer(ctx context.Context, index int) (raffledomain.Address, error)
	GetRecentWinner(ctx context.Context) (raffledomain.Address, error)
	GetLatestTimestamp(ctx context.Context) (time.Time, error)
	GetRequestConfirmations() uint16
	GetNumWords() uint32
	GetSnapshot(ctx context.Context) (*Snapshot, error)

	ListWinners(ctx context.Context, since time.Time, limit int) ([]WinnerRecord, error)
	ExportWinnersXLSX(ctx context.Context, since time.Time, limit int) ([]byte, error)
	RenderPrizeChart(ctx context.Context, since time.Time, limit int) ([]byte, error)
	GetBalance(ctx context.Context, address raffledomain.Address) (int64, error)
}
