package domain_test

import (
	"testing"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestDisposition_Allows(t *testing.T) {
	d := domain.Disposition{Permissions: []domain.Permission{domain.PermissionRead, domain.PermissionPost}}
	assert.True(t, d.Allows(domain.PermissionRead))
	assert.True(t, d.Allows(domain.PermissionPost))
	assert.False(t, d.Allows(domain.PermissionTransition))

	manager := domain.Disposition{Permissions: []domain.Permission{domain.PermissionManage}}
	assert.True(t, manager.Allows(domain.PermissionTransition))
}

func TestAccessControlEntry_Allows(t *testing.T) {
	ace := domain.AccessControlEntry{Permission: domain.PermissionTransition}
	assert.True(t, ace.Allows(domain.PermissionTransition))
	assert.False(t, ace.Allows(domain.PermissionRead))
	assert.False(t, domain.Permission("FLY").IsValid())
}
