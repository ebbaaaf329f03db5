// Integration runner against a live Interverse node. Exercises the full
// round trip: verify game, create wallets, mint, transfer, and the push
// stream. Needs INTERVERSE_NODE_URL, INTERVERSE_GAME_ID, and
// INTERVERSE_API_KEY in the environment.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FabianB14/InterverseSDK/internal/app"
	"github.com/FabianB14/InterverseSDK/internal/domain"
	"github.com/FabianB14/InterverseSDK/internal/event"
	"github.com/FabianB14/InterverseSDK/internal/infra"
	"github.com/FabianB14/InterverseSDK/internal/infra/verse"
)

func main() {
	defer infra.Recover()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	slog.Info("Starting Interverse integration run...")

	cfg := &infra.Config{}
	cfg.Node.URL = os.Getenv("INTERVERSE_NODE_URL")
	cfg.Node.GameID = os.Getenv("INTERVERSE_GAME_ID")
	cfg.Node.APIKey = os.Getenv("INTERVERSE_API_KEY")
	cfg.Stream.ReadTimeoutSec = 60
	cfg.Stream.PingIntervalSec = 30
	cfg.Stream.InboxSize = 1024
	cfg.Request.TimeoutSec = 30
	if err := cfg.Validate(); err != nil {
		slog.Error("Incomplete environment", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := app.NewClient(cfg, nil, nil)
	client.OnAssetMinted(func(e event.AssetMintedEvent) {
		slog.Info("Stream: asset minted", "asset_id", e.Asset.AssetID, "owner", e.OwnerID)
	})
	client.OnTransferComplete(func(e event.TransferCompleteEvent) {
		slog.Info("Stream: transfer complete", "asset_id", e.AssetID, "success", e.Success)
	})

	// The SDK never reconnects on its own; the integration owns the retry
	// policy.
	client.OnConnectionState(func(e event.ConnectionStateEvent) {
		if !e.Success {
			slog.Warn("Stream dropped", "reason", e.Reason)
		}
	})

	client.Start()
	defer client.Stop()

	for attempt := 0; ; attempt++ {
		if err := client.Connect(ctx); err == nil {
			break
		} else if ctx.Err() != nil {
			return
		} else {
			delay := infra.CalculateBackoff(attempt)
			slog.Warn("Connect failed, retrying", "attempt", attempt, "delay", delay, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
	}
	slog.Info("Stream up", "status", client.ConnectionStatus())

	slog.Info("STEP 1: Verifying game...")
	step(ctx, func(next func()) {
		client.VerifyGame(ctx, func(info verse.GameInfo, err error) {
			must(err, "VerifyGame")
			slog.Info("Game verified", "game_id", info.GameID, "name", info.Name)
			next()
		})
	})

	var sender, recipient domain.Wallet

	slog.Info("STEP 2: Creating wallets...")
	step(ctx, func(next func()) {
		client.CreateWallet(ctx, func(w domain.Wallet, err error) {
			must(err, "CreateWallet(sender)")
			sender = w
			client.CreateWallet(ctx, func(w domain.Wallet, err error) {
				must(err, "CreateWallet(recipient)")
				recipient = w
				next()
			})
		})
	})
	slog.Info("Wallets ready", "sender", sender.Address, "recipient", recipient.Address)

	var minted domain.Asset

	slog.Info("STEP 3: Minting asset...")
	step(ctx, func(next func()) {
		props := domain.AssetProperties{
			Category:        domain.CategoryWeapon,
			Rarity:          domain.RarityRare,
			Level:           12,
			ModelIdentifier: "integration_sword",
			Tags:            []string{"integration"},
		}
		client.MintAsset(ctx, sender.Address, props, map[string]string{"run": "integration"}, func(a domain.Asset, err error) {
			must(err, "MintAsset")
			minted = a
			next()
		})
	})
	slog.Info("Asset minted", "asset_id", minted.AssetID, "rarity", minted.Rarity.String())

	slog.Info("STEP 4: Transferring asset...")
	step(ctx, func(next func()) {
		client.TransferAsset(ctx, minted.AssetID, sender.Address, recipient.Address, func(res verse.TransferResult, err error) {
			must(err, "TransferAsset")
			slog.Info("Transfer accepted", "transaction_id", res.TransactionID)
			next()
		})
	})

	slog.Info("STEP 5: Checking recipient inventory...")
	step(ctx, func(next func()) {
		client.GetPlayerAssets(ctx, recipient.Address, func(assets []domain.Asset, err error) {
			must(err, "GetPlayerAssets")
			for _, a := range assets {
				if a.AssetID == minted.AssetID {
					slog.Info("Asset arrived", "asset_id", a.AssetID)
					next()
					return
				}
			}
			slog.Error("Minted asset missing from recipient inventory")
			os.Exit(1)
		})
	})

	slog.Info("Integration run passed")
}

// step blocks until the async scenario calls next, so the runner reads
// top to bottom despite the callback API.
func step(ctx context.Context, run func(next func())) {
	done := make(chan struct{})
	run(func() { close(done) })
	select {
	case <-done:
	case <-ctx.Done():
		slog.Error("Interrupted")
		os.Exit(1)
	case <-time.After(60 * time.Second):
		slog.Error("Step timed out")
		os.Exit(1)
	}
}

func must(err error, op string) {
	if err != nil {
		slog.Error(op+" failed", "error", err)
		os.Exit(1)
	}
}
