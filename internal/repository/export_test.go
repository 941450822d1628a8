package repository

// SetAfterRead installs a hook that runs after SetStatus has read a donation
// and before it writes the new status.
func (r *DonationRepository) SetAfterRead(fn func(id int)) {
	r.afterRead = fn
}
