package converter

import (
	"clinicflow/internal/delivery/dto"
	"clinicflow/internal/domain/entity"
)

// UserToResponse converts an AppUser entity to UserResponse DTO
func UserToResponse(user *entity.AppUser) *dto.UserResponse {
	if user == nil {
		return nil
	}

	response := &dto.UserResponse{
		ID:        user.ID,
		Role:      string(user.Role),
		FullName:  user.FullName,
		Phone:     user.Phone,
		Email:     user.Email,
		ClinicID:  user.ClinicID,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}

	// Availability only means something for doctors
	if user.Role == entity.RoleDoctor {
		status := string(user.Availability())
		response.AvailabilityStatus = &status
	}

	return response
}

// UsersToResponses converts a slice of AppUser entities to UserResponse DTOs
func UsersToResponses(users []entity.AppUser) []dto.UserResponse {
	responses := make([]dto.UserResponse, len(users))
	for i := range users {
		responses[i] = *UserToResponse(&users[i])
	}
	return responses
}

// IdentityToResponse flattens an identity result for the client
func IdentityToResponse(result entity.IdentityResult) *dto.IdentityResponse {
	response := &dto.IdentityResponse{State: string(result.State)}
	if !result.IsAuthenticated() {
		return response
	}

	response.User = UserToResponse(&result.Identity.User)
	response.Clinic = ClinicToResponse(result.Identity.Clinic)
	return response
}
