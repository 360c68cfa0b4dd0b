package mocks

//go:generate mockgen -destination=./mock_fetcher.go -package=mocks github.com/rxtech-lab/argo-harvest/pkg/marketdata/provider Fetcher
//go:generate mockgen -destination=./mock_store.go -package=mocks github.com/rxtech-lab/argo-harvest/pkg/marketdata/writer Store
//go:generate mockgen -destination=./mock_pacing.go -package=mocks github.com/rxtech-lab/argo-harvest/pkg/marketdata/pacing Policy
