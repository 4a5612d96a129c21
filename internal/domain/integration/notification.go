package integration

// ResourceType identifies the kind of commerce resource a notification refers to
type ResourceType string

const (
	ResourceTypeProduct  ResourceType = "product"
	ResourceTypeCustomer ResourceType = "customer"
	ResourceTypeOrder    ResourceType = "order"
)

// IsValid reports whether the relay knows how to handle the resource type
func (t ResourceType) IsValid() bool {
	switch t {
	case ResourceTypeProduct, ResourceTypeCustomer, ResourceTypeOrder:
		return true
	}
	return false
}

// NotificationType is the kind of change a notification describes
type NotificationType string

const (
	NotificationResourceCreated NotificationType = "ResourceCreated"
	NotificationResourceUpdated NotificationType = "ResourceUpdated"
	NotificationResourceDeleted NotificationType = "ResourceDeleted"
	NotificationMessage         NotificationType = "Message"
)

// ResourceIdentifier points at the changed commerce resource
type ResourceIdentifier struct {
	TypeID ResourceType `json:"typeId"`
	ID     string       `json:"id"`
}

// Notification is the decoded change envelope delivered through Pub/Sub
type Notification struct {
	ProjectKey       string             `json:"projectKey"`
	NotificationType NotificationType   `json:"notificationType"`
	Resource         ResourceIdentifier `json:"resource"`
	Version          int64              `json:"version,omitempty"`
	ModifiedAt       string             `json:"modifiedAt,omitempty"`
}
