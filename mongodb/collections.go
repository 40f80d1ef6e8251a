package mongodb

const (
	UsersCollection    = "users"
	ProfilesCollection = "profiles"
	RolesCollection    = "roles"
)
