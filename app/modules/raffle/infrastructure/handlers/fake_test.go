package rafflehandlers

import (
	"context"
	"math/big"
	"time"

	"github.com/google/uuid"

	raffleservice "github.com/Black-And-White-Club/raffle/app/modules/raffle/application"
	raffledomain "github.com/Black-And-White-Club/raffle/app/modules/raffle/domain"
)

var testRaffleID = uuid.MustParse("3f1c7b5e-8a2d-4c61-9e0f-2b7d5a9c4e11")

// FakeService records calls and returns what the Func fields return.
type FakeService struct {
	trace []string

	EnterFunc              func(ctx context.Context, player raffledomain.Address, value int64) (*raffleservice.EnterResult, error)
	CheckUpkeepFunc        func(ctx context.Context, performData []byte) (*raffleservice.UpkeepResult, error)
	PerformUpkeepFunc      func(ctx context.Context, performData []byte) (*raffleservice.PerformUpkeepResult, error)
	FulfillRandomWordsFunc func(ctx context.Context, caller raffledomain.Address, requestID raffledomain.RequestID, words []*big.Int) (*raffleservice.FulfillResult, error)
	GetPlayerFunc          func(ctx context.Context, index int) (raffledomain.Address, error)
	GetSnapshotFunc        func(ctx context.Context) (*raffleservice.Snapshot, error)
	ListWinnersFunc        func(ctx context.Context, since time.Time, limit int) ([]raffleservice.WinnerRecord, error)
	GetBalanceFunc         func(ctx context.Context, address raffledomain.Address) (int64, error)
}

func (f *FakeService) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeService) Trace() []string {
	return f.trace
}

func (f *FakeService) Initialize(ctx context.Context) (*raffleservice.Snapshot, error) {
	f.record("Initialize")
	return &raffleservice.Snapshot{RaffleID: testRaffleID}, nil
}

func (f *FakeService) Enter(ctx context.Context, player raffledomain.Address, value int64) (*raffleservice.EnterResult, error) {
	f.record("Enter")
	if f.EnterFunc != nil {
		return f.EnterFunc(ctx, player, value)
	}
	return &raffleservice.EnterResult{RaffleID: testRaffleID, Player: player, Value: value, PlayerCount: 1, Pot: value}, nil
}

func (f *FakeService) CheckUpkeep(ctx context.Context, performData []byte) (*raffleservice.UpkeepResult, error) {
	f.record("CheckUpkeep")
	if f.CheckUpkeepFunc != nil {
		return f.CheckUpkeepFunc(ctx, performData)
	}
	return &raffleservice.UpkeepResult{RaffleID: testRaffleID, PerformData: []byte{}}, nil
}

func (f *FakeService) PerformUpkeep(ctx context.Context, performData []byte) (*raffleservice.PerformUpkeepResult, error) {
	f.record("PerformUpkeep")
	if f.PerformUpkeepFunc != nil {
		return f.PerformUpkeepFunc(ctx, performData)
	}
	return &raffleservice.PerformUpkeepResult{RaffleID: testRaffleID, RequestID: 1}, nil
}

func (f *FakeService) FulfillRandomWords(ctx context.Context, caller raffledomain.Address, requestID raffledomain.RequestID, words []*big.Int) (*raffleservice.FulfillResult, error) {
	f.record("FulfillRandomWords")
	if f.FulfillRandomWordsFunc != nil {
		return f.FulfillRandomWordsFunc(ctx, caller, requestID, words)
	}
	return &raffleservice.FulfillResult{RaffleID: testRaffleID, RequestID: requestID}, nil
}

func (f *FakeService) GetEntranceFee(ctx context.Context) (int64, error) {
	f.record("GetEntranceFee")
	return 10_000_000, nil
}

func (f *FakeService) GetRaffleState(ctx context.Context) (raffledomain.State, error) {
	f.record("GetRaffleState")
	return raffledomain.StateOpen, nil
}

func (f *FakeService) GetInterval(ctx context.Context) (time.Duration, error) {
	f.record("GetInterval")
	return 30 * time.Second, nil
}

func (f *FakeService) GetNumberOfPlayers(ctx context.Context) (int, error) {
	f.record("GetNumberOfPlayers")
	return 0, nil
}

func (f *FakeService) GetPlayer(ctx context.Context, index int) (raffledomain.Address, error) {
	f.record("GetPlayer")
	if f.GetPlayerFunc != nil {
		return f.GetPlayerFunc(ctx, index)
	}
	return "alice", nil
}

func (f *FakeService) GetRecentWinner(ctx context.Context) (raffledomain.Address, error) {
	f.record("GetRecentWinner")
	return "bob", nil
}

func (f *FakeService) GetLatestTimestamp(ctx context.Context) (time.Time, error) {
	f.record("GetLatestTimestamp")
	return time.Time{}, nil
}

func (f *FakeService) GetRequestConfirmations() uint16 { return raffledomain.RequestConfirmations }

func (f *FakeService) GetNumWords() uint32 { return raffledomain.NumWords }

func (f *FakeService) GetSnapshot(ctx context.Context) (*raffleservice.Snapshot, error) {
	f.record("GetSnapshot")
	if f.GetSnapshotFunc != nil {
		return f.GetSnapshotFunc(ctx)
	}
	return &raffleservice.Snapshot{RaffleID: testRaffleID, Players: []raffledomain.Address{}}, nil
}

func (f *FakeService) ListWinners(ctx context.Context, since time.Time, limit int) ([]raffleservice.WinnerRecord, error) {
	f.record("ListWinners")
	if f.ListWinnersFunc != nil {
		return f.ListWinnersFunc(ctx, since, limit)
	}
	return nil, nil
}

func (f *FakeService) ExportWinnersXLSX(ctx context.Context, since time.Time, limit int) ([]byte, error) {
	f.record("ExportWinnersXLSX")
	return []byte("PK"), nil
}

func (f *FakeService) RenderPrizeChart(ctx context.Context, since time.Time, limit int) ([]byte, error) {
	f.record("RenderPrizeChart")
	return []byte("\x89PNG"), nil
}

func (f *FakeService) GetBalance(ctx context.Context, address raffledomain.Address) (int64, error) {
	f.record("GetBalance")
	if f.GetBalanceFunc != nil {
		return f.GetBalanceFunc(ctx, address)
	}
	return 0, nil
}

var _ raffleservice.Service = (*FakeService)(nil)
