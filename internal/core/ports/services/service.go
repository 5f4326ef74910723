package services

// ServiceContainer holds instances of all the application services.
// This is the main entry point for accessing service functionality.
type ServiceContainer struct {
	Identity       IdentitySvcFacade
	Workflow       WorkflowSvcFacade
	Ledger         LedgerSvcFacade
	FundsTransfer  FundsTransferSvcFacade
	Invoice        InvoiceSvcFacade
	Reconciliation ReconciliationSvc
}
