package repositories

// RepositoryProvider bundles every repository implementation behind one
// injection point so the service container does not care which backing store
// is in play.
type RepositoryProvider struct {
	AccountRepo AccountRepositoryFacade
	EntryRepo   EntryRepositoryFacade
	BatchRepo   BatchRepositoryFacade
	PeriodRepo  PeriodRepositoryFacade
	PostingRepo PostingRepository
}
