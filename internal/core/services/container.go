package services

import (
	portsrepo "github.com/SscSPs/ledgerflow/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledgerflow/internal/core/ports/services"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(store portsrepo.Store, opts ...ServiceOption) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	// Identity first: workflow and ledger authorize through it
	container.Identity = NewIdentityService(store, opts...)
	container.Workflow = NewWorkflowService(store, container.Identity, opts...)
	container.Ledger = NewLedgerService(store, container.Identity, opts...)
	container.FundsTransfer = NewFundsTransferService(store, opts...)
	container.Invoice = NewInvoiceService(store, container.Ledger, opts...)
	container.Reconciliation = NewReconciliationService(store, container.FundsTransfer, opts...)

	return container
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.IdentitySvcFacade      = (*identityService)(nil)
	_ portssvc.WorkflowSvcFacade      = (*workflowService)(nil)
	_ portssvc.LedgerSvcFacade        = (*ledgerService)(nil)
	_ portssvc.FundsTransferSvcFacade = (*fundsTransferService)(nil)
	_ portssvc.InvoiceSvcFacade       = (*invoiceService)(nil)
	_ portssvc.ReconciliationSvc      = (*reconciliationService)(nil)
)
