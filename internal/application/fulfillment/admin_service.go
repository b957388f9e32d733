package fulfillment

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Admin action messages.
const (
	MsgCredentialsValid   = "Your keys are correct, and able to connect to Fulfillment by Amazon."
	MsgCredentialsInvalid = "Your Amazon MWS API developer credentials are not valid. Please verify keys were entered correctly, and check user guide for more details on obtaining keys."
	MsgResyncFlagged      = "Inventory Synchronization has been flagged to begin running each inventory cron job until completed."
	MsgResyncFailed       = "Inventory Synchronization could not be flagged. Check the logs for details."
)

// AdminService serves the manual actions of the admin surface.
type AdminService struct {
	inventory *InventoryService
	gateway   *RemoteGateway
	logger    *zap.Logger
	now       func() time.Time
}

// NewAdminService creates a new AdminService
func NewAdminService(inventory *InventoryService, gateway *RemoteGateway, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		inventory: inventory,
		gateway:   gateway,
		logger:    logger.Named("admin"),
		now:       time.Now,
	}
}

// FlagFullResync schedules a full inventory pass starting at the first row.
func (s *AdminService) FlagFullResync(ctx context.Context) ResyncResult {
	if err := s.inventory.FlagFullResync(ctx); err != nil {
		s.logger.Error("Failed to flag full inventory resync", zap.Error(err))
		return ResyncResult{Success: false, Message: MsgResyncFailed}
	}
	return ResyncResult{Success: true, Message: MsgResyncFlagged}
}

// CheckCredentials lists supply changed in the last day to prove the
// configured keys are accepted.
func (s *AdminService) CheckCredentials(ctx context.Context) CredentialCheckResult {
	since := s.now().Add(-24 * time.Hour)
	if _, err := s.gateway.ListSupplyErr(ctx, nil, &since); err != nil {
		return CredentialCheckResult{Result: CredentialResultFail, Message: MsgCredentialsInvalid}
	}
	return CredentialCheckResult{Result: CredentialResultSuccess, Message: MsgCredentialsValid}
}
