package models

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Property{},
		&PropertyImage{},
		&Payment{},
		&PaymentEvent{},
		&RentalApplication{},
		&Lease{},
		&MaintenanceRequest{},
		&Conversation{},
		&Message{},
		&Review{},
		&Wishlist{},
	}
}
