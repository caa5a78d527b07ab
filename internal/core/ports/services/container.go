package services

// ServiceContainer holds all service facades for injection into handlers.
type ServiceContainer struct {
	Account  AccountSvcFacade
	Entry    EntrySvcFacade
	Batch    BatchSvcFacade
	Period   PeriodSvcFacade
	Posting  PostingSvcFacade
	Reversal ReversalSvcFacade
}
