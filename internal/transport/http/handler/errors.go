package handler

const (
	errInternalServer = "Internal server error"
	errStoreNotFound  = "Store not found"
	errInvalidCoords  = "lng and lat must be numbers"
	errPageNotFound   = "Page not found"
	errForbidden      = "You must own a store in order to edit it!"
)

// Flash notices.
const (
	msgLoggedIn         = "You are now logged in!"
	msgLoginFailed      = "Failed Login!"
	msgLoggedOut        = "You are now logged out!"
	msgNoAccount        = "No account with that email exists."
	msgResetSent        = "You have been emailed a password reset link."
	msgResetInvalid     = "Password reset is invalid or has expired"
	msgPasswordReset    = "Nice! Your password has been reset! You are now logged in!"
	msgProfileUpdated   = "Updated the profile!"
	msgEmailTaken       = "An account with that email already exists."
	msgStoreCreated     = "Successfully Created %s. Care to leave a review?"
	msgStoreUpdated     = "Successfully updated %s. View Store →"
	msgPageOutOfRange   = "You asked for page %d. But that doesn't exist. So I put you on page %d"
	msgReviewSaved      = "Review Saved!"
	msgFiletypeRejected = "That filetype isn't allowed!"
	msgPhotoUnreadable  = "We couldn't read that photo. Try a different image."
	msgNameRequired     = "You must supply a name!"
	msgEmailInvalid     = "That Email is not valid!"
	msgPasswordBlank    = "Password Cannot be Blank!"
	msgConfirmBlank     = "Confirmed Password cannot be blank!"
)
