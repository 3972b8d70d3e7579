package models

// All returns every model for AutoMigrate, parents first.
func All() []interface{} {
	return []interface{}{
		&User{},
		&RefreshToken{},
		&Provider{},
		&Meal{},
		&Subscription{},
		&SubscriptionMeal{},
		&Order{},
		&OrderStatusHistory{},
		&OrderSequence{},
		&Review{},
	}
}
