package postgres

// schema is applied by Migrate. Friendships are stored once per pair with user_a < user_b.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id           TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	is_online    BOOLEAN NOT NULL DEFAULT FALSE,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS friendships (
	user_a     TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	user_b     TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	status     TEXT NOT NULL DEFAULT 'accepted',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_a, user_b),
	CHECK (user_a < user_b)
);
`
