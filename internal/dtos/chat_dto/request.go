package chat_dto

type CreateConversationRequest struct {
	Type       string   `json:"type" validate:"required,oneof=direct group"`
	Title      string   `json:"title" validate:"omitempty,min=1,max=120"`
	MemberIDs  []string `json:"member_ids" validate:"required,min=1,dive,required"`
	JoinPolicy string   `json:"join_policy" validate:"omitempty,oneof=admin_approval open"`
}

type GetMessagesRequest struct {
	Limit  int    `json:"limit" validate:"omitempty,min=1,max=100"`
	Cursor *int64 `json:"cursor,omitempty"` // message id, exclusive upper bound
}

type SearchMessagesRequest struct {
	Query  string `json:"q" validate:"required,min=1"`
	Limit  int    `json:"limit" validate:"omitempty,min=1,max=100"`
	Offset int    `json:"offset" validate:"omitempty,min=0"`
}

type AddMembersRequest struct {
	MemberIDs []string `json:"member_ids" validate:"required,min=1,dive,required"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=member admin"`
}

// UpdateGroupDetailsRequest is a partial update; nil fields are left alone.
type UpdateGroupDetailsRequest struct {
	Title           *string `json:"title" validate:"omitempty,min=1,max=120"`
	PhotoURL        *string `json:"photo_url" validate:"omitempty,url"`
	JoinPolicy      *string `json:"join_policy" validate:"omitempty,oneof=admin_approval open"`
	MessagingPolicy *string `json:"messaging_policy" validate:"omitempty,oneof=all_members admins_only"`
}
