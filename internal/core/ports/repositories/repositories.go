package repositories

// Store is the persistence collaborator of the core. Every adapter provides one
// Store over the whole model; services run mutations through RunInTransaction
// and use the transaction-scoped Store handed to the callback.
type Store interface {
	IdentityRepositoryFacade
	WorkflowRepositoryFacade
	LedgerRepositoryFacade
	FundsTransferRepositoryFacade
	InvoiceRepositoryFacade
	OwnershipRepository
	TransactionManager
}
