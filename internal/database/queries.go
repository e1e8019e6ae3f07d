package database

import (
	"time"
)

const roomColumns = "id, host_id, name, invite_code, timer_duration, timer_status, " +
	"timer_started_at, timer_paused_at, timer_elapsed, max_participants, is_public, created_at, ended_at"

func scanRoom(row interface{ Scan(...any) error }) (Room, error) {
	var room Room
	err := row.Scan(
		&room.Id,
		&room.HostId,
		&room.Name,
		&room.InviteCode,
		&room.TimerDuration,
		&room.TimerStatus,
		&room.TimerStartedAt,
		&room.TimerPausedAt,
		&room.TimerElapsed,
		&room.MaxParticipants,
		&room.IsPublic,
		&room.CreatedAt,
		&room.EndedAt,
	)
	return room, err
}

func (db *PgStudyRoomRepository) CreateUser(params CreateUserParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO users (name, email, password_hash, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, name, email, created_at",
		params.Name,
		params.EmailAddress,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Name,
		&u.EmailAddress,
		&u.CreatedAt,
	)

	return u, err
}

func (db *PgStudyRoomRepository) GetUserById(id int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, email, created_at FROM users "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Name,
		&user.EmailAddress,
		&user.CreatedAt,
	)

	return user, err
}

func (db *PgStudyRoomRepository) GetUserByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, email, password_hash, created_at FROM users "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Name,
		&user.EmailAddress,
		&user.PasswordHash,
		&user.CreatedAt,
	)

	return user, err
}

func (db *PgStudyRoomRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	row := db.conn.QueryRow(
		"INSERT INTO study_rooms (host_id, name, invite_code, timer_duration, max_participants, is_public, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING "+roomColumns,
		params.HostId,
		params.Name,
		params.InviteCode,
		params.TimerDuration,
		params.MaxParticipants,
		params.IsPublic,
		time.Now().UTC(),
	)

	return scanRoom(row)
}

// GetRoomById resolves a room by id. Ended rooms are filtered out, so a
// terminated room reads as not found.
func (db *PgStudyRoomRepository) GetRoomById(id int) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT "+roomColumns+" FROM study_rooms "+
			"WHERE id = $1 AND ended_at IS NULL LIMIT 1",
		id,
	)

	return scanRoom(row)
}

func (db *PgStudyRoomRepository) GetRoomByInviteCode(code string) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT "+roomColumns+" FROM study_rooms "+
			"WHERE invite_code = $1 AND ended_at IS NULL LIMIT 1",
		code,
	)

	return scanRoom(row)
}

func (db *PgStudyRoomRepository) ListRoomsForUser(userId int) ([]RoomWithRole, error) {
	rows, err := db.conn.Query(
		"SELECT r.id, r.host_id, r.name, r.invite_code, r.timer_duration, r.timer_status, "+
			"r.timer_started_at, r.timer_paused_at, r.timer_elapsed, r.max_participants, r.is_public, "+
			"r.created_at, r.ended_at, p.role, u.name, u.email "+
			"FROM room_participants p "+
			"JOIN study_rooms r ON r.id = p.room_id "+
			"JOIN users u ON u.id = r.host_id "+
			"WHERE p.user_id = $1 AND p.left_at IS NULL AND r.ended_at IS NULL "+
			"ORDER BY r.created_at DESC",
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []RoomWithRole
	for rows.Next() {
		var r RoomWithRole
		if err := rows.Scan(
			&r.Id,
			&r.HostId,
			&r.Name,
			&r.InviteCode,
			&r.TimerDuration,
			&r.TimerStatus,
			&r.TimerStartedAt,
			&r.TimerPausedAt,
			&r.TimerElapsed,
			&r.MaxParticipants,
			&r.IsPublic,
			&r.CreatedAt,
			&r.EndedAt,
			&r.Role,
			&r.HostName,
			&r.HostEmail,
		); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}

	return rooms, rows.Err()
}

func (db *PgStudyRoomRepository) UpdateRoomTimer(roomId int, upd TimerUpdate) (Room, error) {
	row := db.conn.QueryRow(
		"UPDATE study_rooms SET timer_status = $2, timer_started_at = $3, timer_paused_at = $4, timer_elapsed = $5 "+
			"WHERE id = $1 RETURNING "+roomColumns,
		roomId,
		upd.Status,
		upd.StartedAt,
		upd.PausedAt,
		upd.Elapsed,
	)

	return scanRoom(row)
}

func (db *PgStudyRoomRepository) UpdateRoomHost(roomId, hostId int) error {
	_, err := db.conn.Exec(
		"UPDATE study_rooms SET host_id = $2 WHERE id = $1",
		roomId, hostId,
	)
	return err
}

func (db *PgStudyRoomRepository) EndRoom(roomId int, endedAt time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE study_rooms SET ended_at = $2 WHERE id = $1 AND ended_at IS NULL",
		roomId, endedAt,
	)
	return err
}

const participantColumns = "p.id, p.room_id, p.user_id, p.role, p.joined_at, p.left_at, " +
	"p.total_focus_time, p.completed_rounds, u.name, u.email"

func (db *PgStudyRoomRepository) CreateParticipant(roomId, userId int, role string) (Participant, error) {
	row := db.conn.QueryRow(
		"WITH ins AS ("+
			"INSERT INTO room_participants (room_id, user_id, role, joined_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING *"+
			") SELECT p.id, p.room_id, p.user_id, p.role, p.joined_at, p.left_at, "+
			"p.total_focus_time, p.completed_rounds, u.name, u.email "+
			"FROM ins p JOIN users u ON u.id = p.user_id",
		roomId,
		userId,
		role,
		time.Now().UTC(),
	)

	return scanParticipant(row)
}

func scanParticipant(row interface{ Scan(...any) error }) (Participant, error) {
	var p Participant
	err := row.Scan(
		&p.Id,
		&p.RoomId,
		&p.UserId,
		&p.Role,
		&p.JoinedAt,
		&p.LeftAt,
		&p.TotalFocusTime,
		&p.CompletedRounds,
		&p.UserName,
		&p.UserEmail,
	)
	return p, err
}

func (db *PgStudyRoomRepository) GetActiveParticipant(roomId, userId int) (Participant, error) {
	row := db.conn.QueryRow(
		"SELECT "+participantColumns+" FROM room_participants p "+
			"JOIN users u ON u.id = p.user_id "+
			"WHERE p.room_id = $1 AND p.user_id = $2 AND p.left_at IS NULL LIMIT 1",
		roomId, userId,
	)

	return scanParticipant(row)
}

func (db *PgStudyRoomRepository) ListActiveParticipants(roomId int) ([]Participant, error) {
	rows, err := db.conn.Query(
		"SELECT "+participantColumns+" FROM room_participants p "+
			"JOIN users u ON u.id = p.user_id "+
			"WHERE p.room_id = $1 AND p.left_at IS NULL "+
			"ORDER BY p.joined_at",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

func (db *PgStudyRoomRepository) CountActiveParticipants(roomId int) (int, error) {
	row := db.conn.QueryRow(
		"SELECT COUNT(*) FROM room_participants WHERE room_id = $1 AND left_at IS NULL",
		roomId,
	)

	var count int
	err := row.Scan(&count)
	return count, err
}

func (db *PgStudyRoomRepository) LeaveRoom(participantId int, leftAt time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE room_participants SET left_at = $2 WHERE id = $1 AND left_at IS NULL",
		participantId, leftAt,
	)
	return err
}

func (db *PgStudyRoomRepository) UpdateParticipantRole(roomId, userId int, role string) error {
	_, err := db.conn.Exec(
		"UPDATE room_participants SET role = $3 "+
			"WHERE room_id = $1 AND user_id = $2 AND left_at IS NULL",
		roomId, userId, role,
	)
	return err
}

// CompleteRoomTimer adds a completed round's seconds to the stats of every
// participant still in the room and writes the completed timer state, both in
// one transaction. Left participants are untouched. A failure rolls both
// writes back, so participants are never credited for a round the room still
// shows as running.
func (db *PgStudyRoomRepository) CompleteRoomTimer(roomId, seconds int, upd TimerUpdate) (Room, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Room{}, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"UPDATE room_participants SET total_focus_time = total_focus_time + $2, "+
			"completed_rounds = completed_rounds + $2 "+
			"WHERE room_id = $1 AND left_at IS NULL",
		roomId, seconds,
	); err != nil {
		return Room{}, err
	}

	row := tx.QueryRow(
		"UPDATE study_rooms SET timer_status = $2, timer_started_at = $3, timer_paused_at = $4, timer_elapsed = $5 "+
			"WHERE id = $1 RETURNING "+roomColumns,
		roomId,
		upd.Status,
		upd.StartedAt,
		upd.PausedAt,
		upd.Elapsed,
	)
	room, err := scanRoom(row)
	if err != nil {
		return Room{}, err
	}

	return room, tx.Commit()
}

const joinRequestColumns = "jr.id, jr.room_id, jr.user_id, jr.status, jr.created_at, jr.responded_at, u.name, u.email"

func scanJoinRequest(row interface{ Scan(...any) error }) (JoinRequest, error) {
	var jr JoinRequest
	err := row.Scan(
		&jr.Id,
		&jr.RoomId,
		&jr.UserId,
		&jr.Status,
		&jr.CreatedAt,
		&jr.RespondedAt,
		&jr.UserName,
		&jr.UserEmail,
	)
	return jr, err
}

func (db *PgStudyRoomRepository) CreateJoinRequest(roomId, userId int) (JoinRequest, error) {
	row := db.conn.QueryRow(
		"WITH ins AS ("+
			"INSERT INTO room_join_requests (room_id, user_id, status, created_at) "+
			"VALUES ($1, $2, 'pending', $3) RETURNING *"+
			") SELECT jr.id, jr.room_id, jr.user_id, jr.status, jr.created_at, jr.responded_at, u.name, u.email "+
			"FROM ins jr JOIN users u ON u.id = jr.user_id",
		roomId,
		userId,
		time.Now().UTC(),
	)

	return scanJoinRequest(row)
}

func (db *PgStudyRoomRepository) GetPendingJoinRequest(roomId, userId int) (JoinRequest, error) {
	row := db.conn.QueryRow(
		"SELECT "+joinRequestColumns+" FROM room_join_requests jr "+
			"JOIN users u ON u.id = jr.user_id "+
			"WHERE jr.room_id = $1 AND jr.user_id = $2 AND jr.status = 'pending' LIMIT 1",
		roomId, userId,
	)

	return scanJoinRequest(row)
}

func (db *PgStudyRoomRepository) GetJoinRequest(id int) (JoinRequest, error) {
	row := db.conn.QueryRow(
		"SELECT "+joinRequestColumns+" FROM room_join_requests jr "+
			"JOIN users u ON u.id = jr.user_id "+
			"WHERE jr.id = $1 LIMIT 1",
		id,
	)

	return scanJoinRequest(row)
}

func (db *PgStudyRoomRepository) ListPendingJoinRequests(roomId int) ([]JoinRequest, error) {
	rows, err := db.conn.Query(
		"SELECT "+joinRequestColumns+" FROM room_join_requests jr "+
			"JOIN users u ON u.id = jr.user_id "+
			"WHERE jr.room_id = $1 AND jr.status = 'pending' "+
			"ORDER BY jr.created_at",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []JoinRequest
	for rows.Next() {
		jr, err := scanJoinRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, jr)
	}

	return requests, rows.Err()
}

func (db *PgStudyRoomRepository) RespondJoinRequest(id int, status string, respondedAt time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE room_join_requests SET status = $2, responded_at = $3 "+
			"WHERE id = $1 AND status = 'pending'",
		id, status, respondedAt,
	)
	return err
}

const friendshipColumns = "f.id, f.user_id, f.friend_id, f.status, f.created_at, f.accepted_at"

func scanFriendship(row interface{ Scan(...any) error }) (Friendship, error) {
	var f Friendship
	err := row.Scan(
		&f.Id,
		&f.UserId,
		&f.FriendId,
		&f.Status,
		&f.CreatedAt,
		&f.AcceptedAt,
	)
	return f, err
}

func (db *PgStudyRoomRepository) CreateFriendRequest(userId, friendId int) (Friendship, error) {
	row := db.conn.QueryRow(
		"INSERT INTO friendships (user_id, friend_id, status, created_at) "+
			"VALUES ($1, $2, 'pending', $3) RETURNING id, user_id, friend_id, status, created_at, accepted_at",
		userId,
		friendId,
		time.Now().UTC(),
	)

	return scanFriendship(row)
}

// GetFriendship resolves the row between two users regardless of which side
// sent the request.
func (db *PgStudyRoomRepository) GetFriendship(userId, otherId int) (Friendship, error) {
	row := db.conn.QueryRow(
		"SELECT "+friendshipColumns+" FROM friendships f "+
			"WHERE (f.user_id = $1 AND f.friend_id = $2) "+
			"OR (f.user_id = $2 AND f.friend_id = $1) LIMIT 1",
		userId, otherId,
	)

	return scanFriendship(row)
}

func (db *PgStudyRoomRepository) GetFriendRequest(id int) (Friendship, error) {
	row := db.conn.QueryRow(
		"SELECT "+friendshipColumns+" FROM friendships f WHERE f.id = $1 LIMIT 1",
		id,
	)

	return scanFriendship(row)
}

func scanFriendshipWithUser(row interface{ Scan(...any) error }) (FriendshipWithUser, error) {
	var f FriendshipWithUser
	err := row.Scan(
		&f.Id,
		&f.UserId,
		&f.FriendId,
		&f.Status,
		&f.CreatedAt,
		&f.AcceptedAt,
		&f.OtherUserId,
		&f.OtherName,
		&f.OtherEmail,
	)
	return f, err
}

// ListFriends returns accepted friendships from either side, joined with the
// other user's display fields.
func (db *PgStudyRoomRepository) ListFriends(userId int) ([]FriendshipWithUser, error) {
	rows, err := db.conn.Query(
		"SELECT "+friendshipColumns+", u.id, u.name, u.email FROM friendships f "+
			"JOIN users u ON u.id = CASE WHEN f.user_id = $1 THEN f.friend_id ELSE f.user_id END "+
			"WHERE (f.user_id = $1 OR f.friend_id = $1) AND f.status = 'accepted' "+
			"ORDER BY f.accepted_at",
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var friends []FriendshipWithUser
	for rows.Next() {
		f, err := scanFriendshipWithUser(rows)
		if err != nil {
			return nil, err
		}
		friends = append(friends, f)
	}

	return friends, rows.Err()
}

func (db *PgStudyRoomRepository) ListPendingFriendRequests(userId int) ([]FriendshipWithUser, error) {
	rows, err := db.conn.Query(
		"SELECT "+friendshipColumns+", u.id, u.name, u.email FROM friendships f "+
			"JOIN users u ON u.id = f.user_id "+
			"WHERE f.friend_id = $1 AND f.status = 'pending' "+
			"ORDER BY f.created_at",
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []FriendshipWithUser
	for rows.Next() {
		f, err := scanFriendshipWithUser(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, f)
	}

	return requests, rows.Err()
}

func (db *PgStudyRoomRepository) AcceptFriendRequest(id int, acceptedAt time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE friendships SET status = 'accepted', accepted_at = $2 "+
			"WHERE id = $1 AND status = 'pending'",
		id, acceptedAt,
	)
	return err
}

func (db *PgStudyRoomRepository) DeleteFriendRequest(id int) error {
	_, err := db.conn.Exec(
		"DELETE FROM friendships WHERE id = $1 AND status = 'pending'",
		id,
	)
	return err
}

// RemoveFriend deletes the friendship between two users in either direction.
// It also cancels an outgoing pending request to that user.
func (db *PgStudyRoomRepository) RemoveFriend(userId, friendId int) error {
	_, err := db.conn.Exec(
		"DELETE FROM friendships "+
			"WHERE (user_id = $1 AND friend_id = $2) "+
			"OR (user_id = $2 AND friend_id = $1)",
		userId, friendId,
	)
	return err
}

func (db *PgStudyRoomRepository) CreateCategory(params CreateCategoryParams) (Category, error) {
	row := db.conn.QueryRow(
		"INSERT INTO categories (user_id, name, color, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, user_id, name, color, created_at",
		params.UserId,
		params.Name,
		params.Color,
		time.Now().UTC(),
	)

	var c Category
	err := row.Scan(&c.Id, &c.UserId, &c.Name, &c.Color, &c.CreatedAt)
	return c, err
}

func (db *PgStudyRoomRepository) ListCategories(userId int) ([]Category, error) {
	rows, err := db.conn.Query(
		"SELECT id, user_id, name, color, created_at FROM categories "+
			"WHERE user_id = $1 ORDER BY created_at",
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.Id, &c.UserId, &c.Name, &c.Color, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

func (db *PgStudyRoomRepository) DeleteCategory(userId, categoryId int) error {
	_, err := db.conn.Exec(
		"DELETE FROM categories WHERE id = $1 AND user_id = $2",
		categoryId, userId,
	)
	return err
}

func (db *PgStudyRoomRepository) CreateFocusSession(params CreateFocusSessionParams) (FocusSession, error) {
	row := db.conn.QueryRow(
		"INSERT INTO focus_sessions (user_id, category_id, duration, started_at, completed_at) "+
			"VALUES ($1, $2, $3, $4, $5) RETURNING id, user_id, category_id, duration, started_at, completed_at",
		params.UserId,
		params.CategoryId,
		params.Duration,
		params.StartedAt,
		params.CompletedAt,
	)

	var fs FocusSession
	err := row.Scan(&fs.Id, &fs.UserId, &fs.CategoryId, &fs.Duration, &fs.StartedAt, &fs.CompletedAt)
	return fs, err
}

func (db *PgStudyRoomRepository) ListFocusSessions(userId, limit int) ([]FocusSession, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := db.conn.Query(
		"SELECT id, user_id, category_id, duration, started_at, completed_at FROM focus_sessions "+
			"WHERE user_id = $1 ORDER BY completed_at DESC LIMIT $2",
		userId, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []FocusSession
	for rows.Next() {
		var fs FocusSession
		if err := rows.Scan(&fs.Id, &fs.UserId, &fs.CategoryId, &fs.Duration, &fs.StartedAt, &fs.CompletedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, fs)
	}

	return sessions, rows.Err()
}
