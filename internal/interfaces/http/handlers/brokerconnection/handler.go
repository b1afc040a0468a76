// Package brokerconnection provides HTTP handlers for managing broker connections.
package brokerconnection

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/dto"
	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/usecases"
	"github.com/autotraderhub/autotrader/internal/shared/authorization"
	"github.com/autotraderhub/autotrader/internal/shared/constants"
	"github.com/autotraderhub/autotrader/internal/shared/errors"
	"github.com/autotraderhub/autotrader/internal/shared/id"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
	"github.com/autotraderhub/autotrader/internal/shared/services/markdown"
	"github.com/autotraderhub/autotrader/internal/shared/utils"
)

// Handler handles broker connection endpoints
type Handler struct {
	createUC     createConnectionUseCase
	listUC       listConnectionsUseCase
	getUC        getConnectionUseCase
	reconnectUC  reconnectConnectionUseCase
	disconnectUC disconnectConnectionUseCase
	deleteUC     deleteConnectionUseCase
	testUC       testConnectionUseCase
	callbackUC   completeCallbackUseCase
	brokersUC    listBrokersUseCase
	pages        markdown.Service
	dashboardURL string
	logger       logger.Interface
}

// NewHandler creates a new broker connection handler.
// dashboardURL is linked from the callback page when set.
func NewHandler(
	createUC createConnectionUseCase,
	listUC listConnectionsUseCase,
	getUC getConnectionUseCase,
	reconnectUC reconnectConnectionUseCase,
	disconnectUC disconnectConnectionUseCase,
	deleteUC deleteConnectionUseCase,
	testUC testConnectionUseCase,
	callbackUC completeCallbackUseCase,
	brokersUC listBrokersUseCase,
	pages markdown.Service,
	dashboardURL string,
	log logger.Interface,
) *Handler {
	return &Handler{
		createUC:     createUC,
		listUC:       listUC,
		getUC:        getUC,
		reconnectUC:  reconnectUC,
		disconnectUC: disconnectUC,
		deleteUC:     deleteUC,
		testUC:       testUC,
		callbackUC:   callbackUC,
		brokersUC:    brokersUC,
		pages:        pages,
		dashboardURL: dashboardURL,
		logger:       log,
	}
}

// CreateConnection handles POST /broker-connections
//
//	@Summary		Connect a broker account
//	@Description	Stores encrypted API credentials and starts the broker login
//	@Tags			broker-connections
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			request	body		dto.CreateBrokerConnectionRequest	true	"Broker credentials"
//	@Success		201		{object}	utils.APIResponse{data=dto.CreateBrokerConnectionResponse}
//	@Failure		400		{object}	utils.APIResponse
//	@Failure		409		{object}	utils.APIResponse
//	@Failure		429		{object}	utils.APIResponse
//	@Router			/broker-connections [post]
func (h *Handler) CreateConnection(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req dto.CreateBrokerConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for create broker connection", "user_id", userID, "error", err)
		utils.ErrorResponseWithError(c, utils.BindingError(err))
		return
	}

	result, err := h.createUC.Execute(c.Request.Context(), toCreateCommand(userID, &req))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, result, "Broker connection created successfully")
}

// ListConnections handles GET /broker-connections
//
//	@Summary	List broker connections
//	@Tags		broker-connections
//	@Produce	json
//	@Security	Bearer
//	@Success	200	{object}	utils.APIResponse{data=dto.ListBrokerConnectionsResponse}
//	@Router		/broker-connections [get]
func (h *Handler) ListConnections(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	result, err := h.listUC.Execute(c.Request.Context(), userID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// GetConnection handles GET /broker-connections/:id
//
//	@Summary	Get a broker connection
//	@Tags		broker-connections
//	@Produce	json
//	@Security	Bearer
//	@Param		id	path		string	true	"Connection ID (bc_xxx)"
//	@Success	200	{object}	utils.APIResponse{data=dto.BrokerConnectionResponse}
//	@Failure	404	{object}	utils.APIResponse
//	@Router		/broker-connections/{id} [get]
func (h *Handler) GetConnection(c *gin.Context) {
	userID, sid, ok := requireUserAndSID(c)
	if !ok {
		return
	}

	result, err := h.getUC.Execute(c.Request.Context(), sid, userID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// Reconnect handles POST /broker-connections/:id/reconnect
//
//	@Summary	Start a fresh broker login
//	@Tags		broker-connections
//	@Produce	json
//	@Security	Bearer
//	@Param		id		path		string	true	"Connection ID (bc_xxx)"
//	@Param		intent	query		string	false	"reconnect or refresh"
//	@Success	200		{object}	utils.APIResponse{data=dto.LoginURLResponse}
//	@Failure	404		{object}	utils.APIResponse
//	@Failure	501		{object}	utils.APIResponse
//	@Router		/broker-connections/{id}/reconnect [post]
func (h *Handler) Reconnect(c *gin.Context) {
	userID, sid, ok := requireUserAndSID(c)
	if !ok {
		return
	}

	cmd := usecases.ReconnectBrokerConnectionCommand{
		UserID:       userID,
		ConnectionID: sid,
		Intent:       c.Query(constants.QueryIntent),
	}
	result, err := h.reconnectUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Open the login URL to complete the broker login", result)
}

// Disconnect handles POST /broker-connections/:id/disconnect
//
//	@Summary	Disconnect a broker connection
//	@Tags		broker-connections
//	@Produce	json
//	@Security	Bearer
//	@Param		id	path		string	true	"Connection ID (bc_xxx)"
//	@Success	200	{object}	utils.APIResponse{data=dto.BrokerConnectionResponse}
//	@Failure	404	{object}	utils.APIResponse
//	@Router		/broker-connections/{id}/disconnect [post]
func (h *Handler) Disconnect(c *gin.Context) {
	userID, sid, ok := requireUserAndSID(c)
	if !ok {
		return
	}

	result, err := h.disconnectUC.Execute(c.Request.Context(), sid, userID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Broker connection disconnected", result)
}

// DeleteConnection handles DELETE /broker-connections/:id
//
//	@Summary	Delete a broker connection
//	@Tags		broker-connections
//	@Security	Bearer
//	@Param		id	path	string	true	"Connection ID (bc_xxx)"
//	@Success	204
//	@Failure	404	{object}	utils.APIResponse
//	@Router		/broker-connections/{id} [delete]
func (h *Handler) DeleteConnection(c *gin.Context) {
	userID, sid, ok := requireUserAndSID(c)
	if !ok {
		return
	}

	if err := h.deleteUC.Execute(c.Request.Context(), sid, userID); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.NoContentResponse(c)
}

// TestConnection handles POST /broker-connections/:id/test
//
//	@Summary	Fetch the broker profile with the stored session
//	@Tags		broker-connections
//	@Produce	json
//	@Security	Bearer
//	@Param		id	path		string	true	"Connection ID (bc_xxx)"
//	@Success	200	{object}	utils.APIResponse{data=dto.TestConnectionResponse}
//	@Failure	401	{object}	utils.APIResponse
//	@Failure	502	{object}	utils.APIResponse
//	@Router		/broker-connections/{id}/test [post]
func (h *Handler) TestConnection(c *gin.Context) {
	userID, sid, ok := requireUserAndSID(c)
	if !ok {
		return
	}

	result, err := h.testUC.Execute(c.Request.Context(), sid, userID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Broker connection is working", result)
}

// ListBrokers handles GET /brokers
//
//	@Summary	List supported brokers
//	@Tags		brokers
//	@Produce	json
//	@Success	200	{object}	utils.APIResponse{data=[]dto.BrokerInfo}
//	@Router		/brokers [get]
func (h *Handler) ListBrokers(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "", h.brokersUC.Execute())
}

func requireUser(c *gin.Context) (uint, bool) {
	userID, _, ok := authorization.UserFromContext(c)
	if !ok {
		utils.ErrorResponseWithError(c, errors.NewUnauthorizedError("authentication required"))
		return 0, false
	}
	return userID, true
}

func requireUserAndSID(c *gin.Context) (uint, string, bool) {
	userID, ok := requireUser(c)
	if !ok {
		return 0, "", false
	}
	sid, err := utils.ParseSIDParam(c, "id", id.PrefixBrokerConnection, "broker connection")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return 0, "", false
	}
	return userID, sid, true
}

func toCreateCommand(userID uint, req *dto.CreateBrokerConnectionRequest) usecases.CreateBrokerConnectionCommand {
	return usecases.CreateBrokerConnectionCommand{
		UserID:         userID,
		BrokerName:     req.BrokerName,
		APIKey:         req.APIKey,
		APISecret:      req.APISecret,
		BrokerUserID:   req.BrokerUserID,
		ConnectionName: req.ConnectionName,
	}
}
